// Package fingerprint turns normalized text into k-token shingle hashes.
//
// Shingles are built over term tokens only (tokens with a non-empty key), so
// stray punctuation never breaks a run of matching words. ShingleSize is part
// of the index format: a corpus built with one value cannot be queried with
// another.
package fingerprint

import (
	"context"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

const (
	ShingleSize = 5

	// cancellation is checked once per this many shingles
	checkEvery = 1024

	separator = "\x1f"
)

// Span locates one shingle. StartToken/EndToken index into Text.Tokens
// (EndToken exclusive); Start/End are byte offsets into the original text.
type Span struct {
	StartToken int
	EndToken   int
	Start      int
	End        int
}

type Set struct {
	K         int
	Hashes    []uint64
	Spans     []Span
	Positions map[uint64][]Span
}

func (s *Set) Len() int { return len(s.Hashes) }

// Unique returns each distinct hash once, in first-occurrence order.
func (s *Set) Unique() []uint64 {
	seen := make(map[uint64]struct{}, len(s.Hashes))
	out := make([]uint64, 0, len(s.Hashes))
	for _, h := range s.Hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Compute fingerprints text with ShingleSize. A text with fewer than
// ShingleSize terms yields an empty set.
func Compute(ctx context.Context, text *textnorm.Text) (*Set, error) {
	return compute(ctx, text, ShingleSize)
}

func compute(ctx context.Context, text *textnorm.Text, k int) (*Set, error) {
	terms := text.Terms()
	n := len(terms) - k + 1
	if n < 0 {
		n = 0
	}
	set := &Set{
		K:         k,
		Hashes:    make([]uint64, 0, n),
		Spans:     make([]Span, 0, n),
		Positions: make(map[uint64][]Span, n),
	}
	keys := make([]string, k)
	for i := 0; i < n; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := 0; j < k; j++ {
			keys[j] = text.Tokens[terms[i+j]].Key
		}
		first, last := text.Tokens[terms[i]], text.Tokens[terms[i+k-1]]
		span := Span{
			StartToken: terms[i],
			EndToken:   terms[i+k-1] + 1,
			Start:      first.Start,
			End:        last.End,
		}
		h := Hash(keys)
		set.Hashes = append(set.Hashes, h)
		set.Spans = append(set.Spans, span)
		set.Positions[h] = append(set.Positions[h], span)
	}
	return set, nil
}

// Hash is the shingle hash used by every index backend.
func Hash(keys []string) uint64 {
	return xxhash.Sum64String(strings.Join(keys, separator))
}

// ShingleKeys returns the keys of the shingle covering span.
func ShingleKeys(text *textnorm.Text, span Span) []string {
	keys := make([]string, 0, ShingleSize)
	for i := span.StartToken; i < span.EndToken; i++ {
		if k := text.Tokens[i].Key; k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
