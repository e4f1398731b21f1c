package fingerprint

import (
	"context"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

// BagSize is the number of content words in one order-insensitive shingle.
const BagSize = 4

const bagSeed = "bag\x1e"

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "by": {}, "with": {}, "from": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "which": {},
	"who": {}, "whom": {}, "has": {}, "have": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "not": {}, "no": {}, "can": {}, "could": {}, "will": {}, "would": {},
	"may": {}, "might": {}, "must": {}, "should": {}, "shall": {}, "also": {},
	"than": {}, "then": {}, "there": {}, "their": {}, "they": {}, "them": {}, "we": {},
	"our": {}, "you": {}, "your": {}, "he": {}, "she": {}, "his": {}, "her": {},
	"i": {}, "me": {}, "my": {}, "so": {}, "if": {}, "into": {}, "about": {},
	"such": {}, "very": {}, "more": {}, "most": {}, "other": {}, "some": {},
}

// IsStopWord reports whether key carries no content for bag matching.
func IsStopWord(key string) bool {
	_, ok := stopWords[key]
	return ok
}

// Stem strips a few common English suffixes. It only needs to be stable, not
// linguistically right.
func Stem(key string) string {
	for _, suffix := range []string{"ations", "ation", "ings", "ing", "edly", "ies", "ed", "ly", "es", "s"} {
		if len(key) > len(suffix)+3 && strings.HasSuffix(key, suffix) {
			return key[:len(key)-len(suffix)]
		}
	}
	return key
}

// ContentTerms returns token indexes of content words with their stems.
func ContentTerms(text *textnorm.Text) ([]int, []string) {
	idx := make([]int, 0, len(text.Terms()))
	stems := make([]string, 0, len(text.Terms()))
	for _, i := range text.Terms() {
		key := text.Tokens[i].Key
		if IsStopWord(key) {
			continue
		}
		idx = append(idx, i)
		stems = append(stems, Stem(key))
	}
	return idx, stems
}

// ComputeBag hashes sorted windows of BagSize content-word stems. Reordering
// words inside a window or swapping function words leaves the hash unchanged.
func ComputeBag(ctx context.Context, text *textnorm.Text) (*Set, error) {
	idx, stems := ContentTerms(text)
	n := len(idx) - BagSize + 1
	if n < 0 {
		n = 0
	}
	set := &Set{
		K:         BagSize,
		Hashes:    make([]uint64, 0, n),
		Spans:     make([]Span, 0, n),
		Positions: make(map[uint64][]Span, n),
	}
	window := make([]string, BagSize)
	for i := 0; i < n; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		copy(window, stems[i:i+BagSize])
		sort.Strings(window)
		h := xxhash.Sum64String(bagSeed + strings.Join(window, separator))
		span := Span{
			StartToken: idx[i],
			EndToken:   idx[i+BagSize-1] + 1,
			Start:      text.Tokens[idx[i]].Start,
			End:        text.Tokens[idx[i+BagSize-1]].End,
		}
		set.Hashes = append(set.Hashes, h)
		set.Spans = append(set.Spans, span)
		set.Positions[h] = append(set.Positions[h], span)
	}
	return set, nil
}
