// Package matcher finds reference sources that share verbatim text with a
// document and attributes every matched token to exactly one source.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/fingerprint"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

const (
	DefaultGapTokens = 3
	Confidence       = 0.95
)

type Options struct {
	// GapTokens is the largest token gap closed when merging hits against the
	// same source. Zero selects DefaultGapTokens; negative merges only
	// touching or overlapping hits.
	GapTokens int
	// TolerateCorpusFailure turns corpus errors into a degraded, empty result
	// instead of an error.
	TolerateCorpusFailure bool
	Logger                *zap.Logger
}

type Matcher struct {
	corpus corpus.Corpus
	opts   Options
	logger *zap.Logger
}

type Result struct {
	Sources  []model.MatchedSource
	Sections []model.FlaggedSection
	Degraded bool
	Warning  string
}

func New(c corpus.Corpus, opts Options) *Matcher {
	switch {
	case opts.GapTokens == 0:
		opts.GapTokens = DefaultGapTokens
	case opts.GapTokens < 0:
		opts.GapTokens = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{corpus: c, opts: opts, logger: logger}
}

// hit is one confirmed shingle match in token coordinates of the document,
// with the byte range it matched in the source.
type hit struct {
	startTok, endTok int
	srcStart, srcEnd int
}

type candidate struct {
	src    *corpus.Source
	merged []hit
	tokens int
	raw    float64
}

func (m *Matcher) Match(ctx context.Context, text *textnorm.Text, set *fingerprint.Set) (*Result, error) {
	res := &Result{}
	if m.corpus == nil || set.Len() == 0 {
		return res, nil
	}

	hits, err := corpus.LookupAll(ctx, m.corpus, set.Unique())
	if err != nil {
		return m.corpusFailure(ctx, res, "lookup", err)
	}

	bySource := make(map[string][]uint64)
	for h, ids := range hits {
		for _, id := range ids {
			bySource[id] = append(bySource[id], h)
		}
	}
	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var candidates []*candidate
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := m.corpus.Source(ctx, id)
		if errors.Is(err, corpus.ErrNotFound) {
			m.logger.Warn("indexed source missing from store", zap.String("source_id", id))
			continue
		}
		if err != nil {
			return m.corpusFailure(ctx, res, "source", err)
		}
		confirmed, err := confirm(ctx, text, set, src, bySource[id])
		if err != nil {
			return nil, err
		}
		if len(confirmed) == 0 {
			continue
		}
		merged := merge(confirmed, m.opts.GapTokens)
		c := &candidate{src: src, merged: merged}
		for _, h := range merged {
			c.tokens += h.endTok - h.startTok
		}
		c.raw = percentage(c.tokens, text.WordCount())
		candidates = append(candidates, c)
	}

	res.Sources, res.Sections = attribute(text, candidates)
	m.logger.Debug("source matching done",
		zap.Int("candidates", len(candidates)),
		zap.Int("sources", len(res.Sources)),
	)
	return res, nil
}

func (m *Matcher) corpusFailure(ctx context.Context, res *Result, op string, err error) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, corpus.ErrUnavailable) {
		err = fmt.Errorf("%w: %s: %v", corpus.ErrUnavailable, op, err)
	}
	if !m.opts.TolerateCorpusFailure {
		return nil, err
	}
	m.logger.Warn("corpus failure tolerated, source matching skipped", zap.Error(err))
	res.Degraded = true
	res.Warning = "source matching skipped: " + err.Error()
	return res, nil
}

// confirm keeps only hash hits whose token keys really are equal in the
// document and the source.
func confirm(ctx context.Context, text *textnorm.Text, set *fingerprint.Set, src *corpus.Source, hashes []uint64) ([]hit, error) {
	srcText, err := textnorm.Normalize(src.Text)
	if errors.Is(err, textnorm.ErrEmptyInput) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	srcSet, err := fingerprint.Compute(ctx, srcText)
	if err != nil {
		return nil, err
	}

	var out []hit
	for _, h := range hashes {
		srcSpans := srcSet.Positions[h]
		if len(srcSpans) == 0 {
			continue
		}
		for _, ts := range set.Positions[h] {
			want := fingerprint.ShingleKeys(text, ts)
			for _, ss := range srcSpans {
				if equalKeys(want, fingerprint.ShingleKeys(srcText, ss)) {
					out = append(out, hit{startTok: ts.StartToken, endTok: ts.EndToken, srcStart: ss.Start, srcEnd: ss.End})
					break
				}
			}
		}
	}
	return out, nil
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// merge sorts hits and joins those whose token gap is at most gap. Overlapping
// hits always merge.
func merge(hits []hit, gap int) []hit {
	if len(hits) == 0 {
		return nil
	}
	sorted := append([]hit(nil), hits...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].startTok != sorted[j].startTok {
			return sorted[i].startTok < sorted[j].startTok
		}
		return sorted[i].endTok < sorted[j].endTok
	})
	out := []hit{sorted[0]}
	for _, h := range sorted[1:] {
		last := &out[len(out)-1]
		if h.startTok-last.endTok <= gap {
			if h.endTok > last.endTok {
				last.endTok = h.endTok
			}
			if h.srcStart < last.srcStart {
				last.srcStart = h.srcStart
			}
			if h.srcEnd > last.srcEnd {
				last.srcEnd = h.srcEnd
			}
			continue
		}
		out = append(out, h)
	}
	return out
}

func percentage(tokens, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(tokens) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}
