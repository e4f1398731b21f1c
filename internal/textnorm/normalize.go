// Package textnorm splits raw document text into tokens and sentences whose
// offsets always point back into the original text.
package textnorm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var ErrEmptyInput = errors.New("empty input")

// Token is a whitespace-delimited word. Start and End are byte offsets into
// the original text. Key is the comparison form used for fingerprinting and
// may be empty when the token is punctuation only.
type Token struct {
	Text  string
	Key   string
	Start int
	End   int
}

// Sentence covers [Start, End) in the original text, terminator included.
// Tokens in [FirstToken, EndToken) start inside the sentence.
type Sentence struct {
	Start      int
	End        int
	FirstToken int
	EndToken   int
}

type Text struct {
	Source    string
	Tokens    []Token
	Sentences []Sentence

	terms []int
}

func Normalize(text string) (*Text, error) {
	return build(text, segmentSentences)
}

// NormalizeLines treats every non-blank line as a sentence, trimmed of
// surrounding whitespace. Source code is segmented this way.
func NormalizeLines(text string) (*Text, error) {
	return build(text, segmentLines)
}

func build(text string, segment func(string) []Sentence) (*Text, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	folder := cases.Fold()
	out := &Text{Source: text}
	out.Tokens = tokenize(text, folder)
	out.Sentences = segment(text)
	for i := range out.Sentences {
		s := &out.Sentences[i]
		s.FirstToken = sort.Search(len(out.Tokens), func(j int) bool { return out.Tokens[j].End > s.Start })
		s.EndToken = sort.Search(len(out.Tokens), func(j int) bool { return out.Tokens[j].Start >= s.End })
	}
	out.terms = make([]int, 0, len(out.Tokens))
	for i, tok := range out.Tokens {
		if tok.Key != "" {
			out.terms = append(out.terms, i)
		}
	}
	return out, nil
}

func (t *Text) WordCount() int { return len(t.Tokens) }

func (t *Text) SentenceCount() int { return len(t.Sentences) }

// Terms returns indexes of tokens with a non-empty key, in document order.
func (t *Text) Terms() []int { return t.terms }

// Slice returns the original text for [start, end).
func (t *Text) Slice(start, end int) string {
	if !t.ValidSpan(start, end) {
		return ""
	}
	return t.Source[start:end]
}

func (t *Text) ValidSpan(start, end int) bool {
	return start >= 0 && start < end && end <= len(t.Source)
}

// SentenceText returns the sentence without its terminator run.
func (t *Text) SentenceText(s Sentence) string {
	return strings.TrimRight(t.Source[s.Start:s.End], ".!?")
}

// CheckOffsets verifies the monotonic, non-overlapping offset invariant.
func (t *Text) CheckOffsets() error {
	prev := 0
	for i, tok := range t.Tokens {
		if tok.Start < prev || tok.End <= tok.Start || tok.End > len(t.Source) {
			return fmt.Errorf("token %d has invalid offsets [%d,%d)", i, tok.Start, tok.End)
		}
		prev = tok.End
	}
	prev = 0
	for i, s := range t.Sentences {
		if s.Start < prev || s.End <= s.Start || s.End > len(t.Source) {
			return fmt.Errorf("sentence %d has invalid offsets [%d,%d)", i, s.Start, s.End)
		}
		prev = s.End
	}
	return nil
}

func tokenize(text string, folder cases.Caser) []Token {
	tokens := make([]Token, 0, len(text)/5)
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, newToken(text, start, i, folder))
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, newToken(text, start, len(text), folder))
	}
	return tokens
}

func newToken(text string, start, end int, folder cases.Caser) Token {
	raw := text[start:end]
	return Token{Text: raw, Key: KeyOf(raw, folder), Start: start, End: end}
}

// KeyOf returns the comparison key for a single token.
func KeyOf(raw string, folder cases.Caser) string {
	trimmed := strings.TrimFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if trimmed == "" {
		return ""
	}
	folder.Reset()
	return folder.String(norm.NFKC.String(trimmed))
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func segmentSentences(text string) []Sentence {
	out := []Sentence{}
	segStart := 0
	for i := 0; i < len(text); {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && isTerminator(text[j]) {
			j++
		}
		if s := skipSpace(text, segStart, i); s < i {
			out = append(out, Sentence{Start: s, End: j})
		}
		segStart = j
		i = j
	}
	s := skipSpace(text, segStart, len(text))
	if e := trimSpaceRight(text, s, len(text)); s < e {
		out = append(out, Sentence{Start: s, End: e})
	}
	return out
}

func segmentLines(text string) []Sentence {
	out := []Sentence{}
	for start := 0; start < len(text); {
		end := strings.IndexByte(text[start:], '\n')
		next := len(text)
		if end < 0 {
			end = len(text)
		} else {
			end += start
			next = end + 1
		}
		s := skipSpace(text, start, end)
		if e := trimSpaceRight(text, s, end); s < e {
			out = append(out, Sentence{Start: s, End: e})
		}
		start = next
	}
	return out
}

func skipSpace(text string, from, to int) int {
	for from < to {
		r, size := utf8.DecodeRuneInString(text[from:to])
		if !unicode.IsSpace(r) {
			return from
		}
		from += size
	}
	return to
}

func trimSpaceRight(text string, from, to int) int {
	for to > from {
		r, size := utf8.DecodeLastRuneInString(text[from:to])
		if !unicode.IsSpace(r) {
			return to
		}
		to -= size
	}
	return from
}
