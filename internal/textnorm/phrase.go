package textnorm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PhraseMatch is one occurrence of a configured phrase, as byte offsets into
// the original text.
type PhraseMatch struct {
	Phrase string
	Start  int
	End    int
}

// PhraseSet finds case-insensitive, word-bounded phrase occurrences. Runs of
// whitespace in the text match a single space in the phrase and straight and
// curly apostrophes are interchangeable. Word boundaries are Unicode-aware:
// letters, digits, combining marks and '_' all count as word characters.
type PhraseSet struct {
	phrases []string
	res     []*regexp.Regexp
}

func CompilePhrases(phrases []string) (*PhraseSet, error) {
	set := &PhraseSet{}
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(phrasePattern(p))
		if err != nil {
			return nil, fmt.Errorf("compile phrase %q: %w", p, err)
		}
		set.phrases = append(set.phrases, p)
		set.res = append(set.res, re)
	}
	return set, nil
}

func phrasePattern(p string) string {
	words := strings.Fields(p)
	for i, w := range words {
		w = regexp.QuoteMeta(w)
		w = strings.NewReplacer("'", `['’]`, "’", `['’]`).Replace(w)
		words[i] = w
	}
	return `(?i)` + strings.Join(words, `\s+`)
}

func (s *PhraseSet) Len() int { return len(s.phrases) }

// FindAll returns matches ordered by start offset, then phrase order. ctx is
// checked between phrases.
func (s *PhraseSet) FindAll(ctx context.Context, text string) ([]PhraseMatch, error) {
	var out []PhraseMatch
	for i, re := range s.res {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for pos := 0; pos < len(text); {
			loc := re.FindStringIndex(text[pos:])
			if loc == nil {
				break
			}
			start, end := pos+loc[0], pos+loc[1]
			if bounded(text, start, end) {
				out = append(out, PhraseMatch{Phrase: s.phrases[i], Start: start, End: end})
				pos = end
				continue
			}
			// retry one rune further so a rejected match cannot hide a later one
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + size
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Count returns the number of matches.
func (s *PhraseSet) Count(ctx context.Context, text string) (int, error) {
	m, err := s.FindAll(ctx, text)
	return len(m), err
}

func bounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}
