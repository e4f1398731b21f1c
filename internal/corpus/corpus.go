// Package corpus defines the reference corpus contract the matcher and the
// paraphrase detector query, plus an in-memory implementation.
package corpus

import (
	"context"
	"errors"

	"github.com/darved2305/VeriTextAI/internal/model"
)

var (
	// ErrUnavailable means the corpus could not answer. Callers decide
	// whether to degrade or fail.
	ErrUnavailable = errors.New("corpus unavailable")

	ErrNotFound = errors.New("source not found")
)

// Source is a reference document. Text is kept so hits can be confirmed
// against actual tokens rather than trusting hashes.
type Source struct {
	ID     string           `json:"id"`
	URL    string           `json:"url,omitempty"`
	Title  string           `json:"title,omitempty"`
	Author string           `json:"author,omitempty"`
	Type   model.SourceType `json:"type"`
	Text   string           `json:"text"`
}

type Index interface {
	// Lookup returns IDs of sources containing the shingle hash.
	Lookup(ctx context.Context, hash uint64) ([]string, error)
}

// BatchIndex is implemented by backends that can answer many hashes in one
// round trip. Missing hashes are absent from the result.
type BatchIndex interface {
	LookupBatch(ctx context.Context, hashes []uint64) (map[uint64][]string, error)
}

type Store interface {
	Source(ctx context.Context, id string) (*Source, error)
}

type Corpus interface {
	Index
	Store
}

type Writer interface {
	Add(ctx context.Context, src Source) error
}

type Stats struct {
	Sources      int `json:"sources"`
	Fingerprints int `json:"fingerprints"`
}

type StatsReporter interface {
	Stats(ctx context.Context) (Stats, error)
}

// LookupAll resolves hashes through LookupBatch when idx supports it and
// falls back to one Lookup per hash otherwise.
func LookupAll(ctx context.Context, idx Index, hashes []uint64) (map[uint64][]string, error) {
	if b, ok := idx.(BatchIndex); ok {
		return b.LookupBatch(ctx, hashes)
	}
	out := make(map[uint64][]string)
	for i, h := range hashes {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ids, err := idx.Lookup(ctx, h)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			out[h] = ids
		}
	}
	return out, nil
}
