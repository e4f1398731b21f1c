package corpus

import (
	"context"
	"fmt"

	"github.com/darved2305/VeriTextAI/internal/fingerprint"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

// Fingerprints returns every hash a source must be indexed under: ordered
// shingles for verbatim matching and bag shingles for the paraphrase signal.
func Fingerprints(ctx context.Context, src Source) ([]uint64, error) {
	text, err := textnorm.Normalize(src.Text)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}
	ordered, err := fingerprint.Compute(ctx, text)
	if err != nil {
		return nil, err
	}
	bag, err := fingerprint.ComputeBag(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, ordered.Len()+bag.Len())
	out = append(out, ordered.Unique()...)
	out = append(out, bag.Unique()...)
	return out, nil
}
