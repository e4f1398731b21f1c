// Package paraphrase flags reworded text: stock academic phrasing that often
// survives paraphrasing, and passages that reuse a source's content words in
// a different order.
package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/fingerprint"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

const (
	PhraseConfidence     = 0.6
	StructuralConfidence = 0.7

	// windows mostly covered by verbatim shingles belong to the matcher
	maxVerbatimShare = 0.5
)

type Options struct {
	// Corpus enables the structural signal; nil disables it.
	Corpus                corpus.Corpus
	TolerateCorpusFailure bool
	Logger                *zap.Logger
}

type Detector struct {
	rules   config.ParaphraseRules
	phrases *textnorm.PhraseSet
	opts    Options
	logger  *zap.Logger
}

func New(rules config.ParaphraseRules, opts Options) (*Detector, error) {
	phrases, err := textnorm.CompilePhrases(rules.Phrases)
	if err != nil {
		return nil, fmt.Errorf("paraphrase phrases: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{rules: rules, phrases: phrases, opts: opts, logger: logger}, nil
}

// Detect flags stock academic phrasing. It never touches the corpus.
func (d *Detector) Detect(ctx context.Context, text *textnorm.Text) (model.DetectorOutput, error) {
	var out model.DetectorOutput
	matches, err := d.phrases.FindAll(ctx, text.Source)
	if err != nil {
		return model.DetectorOutput{}, err
	}
	score := 0.0
	for _, m := range matches {
		score += d.rules.PhraseWeight
		out.Signals = append(out.Signals, model.Signal{Name: "academic_phrase", Weight: d.rules.PhraseWeight, Detail: m.Phrase})
		out.Sections = append(out.Sections, model.FlaggedSection{
			Type:        model.SectionParaphrased,
			Text:        text.Slice(m.Start, m.End),
			StartOffset: m.Start,
			EndOffset:   m.End,
			Confidence:  PhraseConfidence,
			Severity:    model.SeverityLow,
			Explanation: fmt.Sprintf("Common academic phrase %q", m.Phrase),
		})
	}
	out.Score = math.Min(100, score)
	return out, nil
}

// DetectStructural flags passages that reuse a corpus source's content words
// in a different order. Without a corpus it reports nothing.
func (d *Detector) DetectStructural(ctx context.Context, text *textnorm.Text) (model.DetectorOutput, error) {
	var out model.DetectorOutput
	if d.opts.Corpus == nil {
		return out, nil
	}
	sections, err := d.structural(ctx, text)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return model.DetectorOutput{}, ctx.Err()
	case errors.Is(err, corpus.ErrUnavailable) && d.opts.TolerateCorpusFailure:
		d.logger.Warn("corpus failure tolerated, structural paraphrase check skipped", zap.Error(err))
		out.Warnings = append(out.Warnings, "structural paraphrase check skipped: "+err.Error())
		return out, nil
	default:
		return model.DetectorOutput{}, err
	}
	score := 0.0
	for _, s := range sections {
		score += d.rules.StructuralWeight
		out.Signals = append(out.Signals, model.Signal{Name: "reordered_source", Weight: d.rules.StructuralWeight, Detail: s.Explanation})
	}
	out.Sections = sections
	out.Score = math.Min(100, score)
	return out, nil
}

type window struct {
	startTok, endTok int
	srcStartTok      int
	srcEndTok        int
}

func (d *Detector) structural(ctx context.Context, text *textnorm.Text) ([]model.FlaggedSection, error) {
	bag, err := fingerprint.ComputeBag(ctx, text)
	if err != nil || bag.Len() == 0 {
		return nil, err
	}
	ordered, err := fingerprint.Compute(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := corpus.LookupAll(ctx, d.opts.Corpus, bag.Unique())
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, corpus.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", corpus.ErrUnavailable, err)
		}
		return nil, err
	}
	candidates := map[string]struct{}{}
	for _, ids := range hits {
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docIdx, docStems := fingerprint.ContentTerms(text)
	var sections []model.FlaggedSection
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := d.opts.Corpus.Source(ctx, id)
		if errors.Is(err, corpus.ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, corpus.ErrUnavailable) {
				err = fmt.Errorf("%w: %v", corpus.ErrUnavailable, err)
			}
			return nil, err
		}
		found, err := d.compareSource(ctx, text, bag, ordered, docIdx, docStems, src)
		if err != nil {
			return nil, err
		}
		sections = append(sections, found...)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].StartOffset < sections[j].StartOffset })
	return sections, nil
}

func (d *Detector) compareSource(ctx context.Context, text *textnorm.Text, bag, ordered *fingerprint.Set, docIdx []int, docStems []string, src *corpus.Source) ([]model.FlaggedSection, error) {
	srcText, err := textnorm.Normalize(src.Text)
	if errors.Is(err, textnorm.ErrEmptyInput) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	srcBag, err := fingerprint.ComputeBag(ctx, srcText)
	if err != nil {
		return nil, err
	}
	srcOrdered, err := fingerprint.Compute(ctx, srcText)
	if err != nil {
		return nil, err
	}

	var raw []window
	for i, h := range bag.Hashes {
		srcSpans := srcBag.Positions[h]
		if len(srcSpans) == 0 {
			continue
		}
		span := bag.Spans[i]
		raw = append(raw, window{
			startTok:    span.StartToken,
			endTok:      span.EndToken,
			srcStartTok: srcSpans[0].StartToken,
			srcEndTok:   srcSpans[0].EndToken,
		})
	}
	if len(raw) == 0 {
		return nil, nil
	}

	srcIdx, srcStems := fingerprint.ContentTerms(srcText)
	var out []model.FlaggedSection
	for _, w := range mergeWindows(raw) {
		if verbatimShare(text, srcText, ordered, srcOrdered, w) >= maxVerbatimShare {
			continue
		}
		sim := jaccard(stemsIn(docIdx, docStems, w.startTok, w.endTok), stemsIn(srcIdx, srcStems, w.srcStartTok, w.srcEndTok))
		if sim < d.rules.StructuralJaccard {
			continue
		}
		start, end := text.Tokens[w.startTok].Start, text.Tokens[w.endTok-1].End
		out = append(out, model.FlaggedSection{
			Type:        model.SectionParaphrased,
			Text:        text.Slice(start, end),
			StartOffset: start,
			EndOffset:   end,
			Confidence:  StructuralConfidence,
			Severity:    model.SeverityMedium,
			Explanation: fmt.Sprintf("Reworded passage resembling %s (content overlap %.0f%%)", label(src), sim*100),
		})
	}
	return out, nil
}

func mergeWindows(in []window) []window {
	sort.Slice(in, func(i, j int) bool { return in[i].startTok < in[j].startTok })
	out := []window{in[0]}
	for _, w := range in[1:] {
		last := &out[len(out)-1]
		if w.startTok < last.endTok {
			last.endTok = max(last.endTok, w.endTok)
			last.srcStartTok = min(last.srcStartTok, w.srcStartTok)
			last.srcEndTok = max(last.srcEndTok, w.srcEndTok)
			continue
		}
		out = append(out, w)
	}
	return out
}

// verbatimShare is the fraction of the window's tokens covered by ordered
// shingles that also occur verbatim in the source.
func verbatimShare(text, srcText *textnorm.Text, ordered, srcOrdered *fingerprint.Set, w window) float64 {
	covered := make([]bool, w.endTok-w.startTok)
	for i, h := range ordered.Hashes {
		span := ordered.Spans[i]
		if span.StartToken < w.startTok || span.EndToken > w.endTok {
			continue
		}
		want := fingerprint.ShingleKeys(text, span)
		for _, ss := range srcOrdered.Positions[h] {
			if equal(want, fingerprint.ShingleKeys(srcText, ss)) {
				for t := span.StartToken; t < span.EndToken; t++ {
					covered[t-w.startTok] = true
				}
				break
			}
		}
	}
	n := 0
	for _, c := range covered {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(covered))
}

func stemsIn(idx []int, stems []string, startTok, endTok int) map[string]struct{} {
	out := map[string]struct{}{}
	lo := sort.SearchInts(idx, startTok)
	for i := lo; i < len(idx) && idx[i] < endTok; i++ {
		out[stems[i]] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func equal(a, b []string) bool {
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

func label(src *corpus.Source) string {
	if src.Title != "" {
		return fmt.Sprintf("%q", src.Title)
	}
	return "source " + src.ID
}
