// Package aidetect scores how likely a text is machine-generated using
// deterministic stylometric indicators.
package aidetect

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/chunk"
	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

const (
	PatternConfidence = 0.85
	WindowConfidence  = 0.5
)

type Detector struct {
	rules    config.AIRules
	patterns *textnorm.PhraseSet
	formal   *textnorm.PhraseSet
	logger   *zap.Logger
}

func New(rules config.AIRules, logger *zap.Logger) (*Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns, err := textnorm.CompilePhrases(rules.Patterns)
	if err != nil {
		return nil, fmt.Errorf("ai patterns: %w", err)
	}
	formal, err := textnorm.CompilePhrases(rules.FormalWords)
	if err != nil {
		return nil, fmt.Errorf("formal words: %w", err)
	}
	d := &Detector{rules: rules, patterns: patterns, formal: formal, logger: logger}
	return d, nil
}

func (d *Detector) Detect(ctx context.Context, text *textnorm.Text) (model.DetectorOutput, error) {
	var out model.DetectorOutput
	score := 0.0
	fire := func(name string, weight float64, detail string) {
		score += weight
		out.Signals = append(out.Signals, model.Signal{Name: name, Weight: weight, Detail: detail})
	}

	matches, err := d.patterns.FindAll(ctx, text.Source)
	if err != nil {
		return model.DetectorOutput{}, err
	}
	for _, m := range matches {
		fire("ai_pattern", d.rules.PatternWeight, m.Phrase)
		out.Sections = append(out.Sections, model.FlaggedSection{
			Type:        model.SectionAIGenerated,
			Text:        text.Slice(m.Start, m.End),
			StartOffset: m.Start,
			EndOffset:   m.End,
			Confidence:  PatternConfidence,
			Severity:    model.SeverityHigh,
			Explanation: fmt.Sprintf("Phrase %q is typical of AI-generated text", m.Phrase),
		})
	}
	if err := ctx.Err(); err != nil {
		return model.DetectorOutput{}, err
	}

	sentences := text.SentenceCount()
	if sentences > d.rules.MinSentences {
		if v := charLengthVariance(text); v < d.rules.VarianceThreshold {
			fire("uniform_sentence_length", d.rules.VarianceWeight, fmt.Sprintf("variance=%.1f", v))
		}
	}

	if d.formal.Len() > 0 && sentences > 0 {
		hits, err := d.formal.Count(ctx, text.Source)
		if err != nil {
			return model.DetectorOutput{}, err
		}
		if density := float64(hits) / float64(sentences); density > d.rules.FormalDensity {
			fire("formal_transitions", d.rules.FormalWeight, fmt.Sprintf("density=%.2f", density))
		}
	}

	keys := termKeys(text)
	if d.rules.MATTRMinWords > 0 && len(keys) >= d.rules.MATTRMinWords {
		if m := mattrScore(keys, d.rules.MATTRWindow); m < d.rules.MATTRThreshold {
			fire("low_lexical_diversity", d.rules.MATTRWeight, fmt.Sprintf("mattr=%.3f", m))
		}
	}
	if err := ctx.Err(); err != nil {
		return model.DetectorOutput{}, err
	}

	sections, flagged, err := d.uniformWindows(ctx, text)
	if err != nil {
		return model.DetectorOutput{}, err
	}
	for i := 0; i < flagged; i++ {
		fire("uniform_window", d.rules.WindowWeight, "")
	}
	out.Sections = append(out.Sections, sections...)

	out.Score = clamp(score, 0, 100)
	d.logger.Debug("ai detection done",
		zap.Int("sentences", sentences),
		zap.Int("signals", len(out.Signals)),
		zap.Float64("score", out.Score),
	)
	return out, nil
}

// uniformWindows flags runs of sentences whose word counts barely vary.
// Overlapping flagged windows are reported as one section; the returned
// count is the number of flagged windows.
func (d *Detector) uniformWindows(ctx context.Context, text *textnorm.Text) ([]model.FlaggedSection, int, error) {
	size := d.rules.WindowSentences
	if size <= 0 || text.SentenceCount() < size {
		return nil, 0, nil
	}
	lengths := make([]float64, text.SentenceCount())
	for i, s := range text.Sentences {
		lengths[i] = float64(s.EndToken - s.FirstToken)
	}

	var sections []model.FlaggedSection
	flagged := 0
	lastEnd := -1
	for _, w := range chunk.Stride(len(lengths), size, d.rules.WindowStride) {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		_, sd := meanStd(lengths[w.Start:w.End])
		if sd >= d.rules.WindowSDThreshold {
			continue
		}
		flagged++
		start, end := text.Sentences[w.Start].Start, text.Sentences[w.End-1].End
		if n := len(sections); n > 0 && start < lastEnd {
			sections[n-1].EndOffset = end
			sections[n-1].Text = text.Slice(sections[n-1].StartOffset, end)
		} else {
			sections = append(sections, model.FlaggedSection{
				Type:        model.SectionAIGenerated,
				Text:        text.Slice(start, end),
				StartOffset: start,
				EndOffset:   end,
				Confidence:  WindowConfidence,
				Severity:    model.SeverityMedium,
				Explanation: fmt.Sprintf("Sentence lengths are unusually uniform (sd %.2f words)", sd),
			})
		}
		lastEnd = end
	}
	return sections, flagged, nil
}

func charLengthVariance(text *textnorm.Text) float64 {
	lengths := make([]float64, 0, text.SentenceCount())
	for _, s := range text.Sentences {
		lengths = append(lengths, float64(utf8.RuneCountInString(strings.TrimSpace(text.SentenceText(s)))))
	}
	_, sd := meanStd(lengths)
	return sd * sd
}

func termKeys(text *textnorm.Text) []string {
	terms := text.Terms()
	keys := make([]string, len(terms))
	for i, idx := range terms {
		keys[i] = text.Tokens[idx].Key
	}
	return keys
}

// mattrScore is the moving-average type/token ratio over windows of n words
// advanced by n/2. Short inputs fall back to the plain ratio.
func mattrScore(words []string, n int) float64 {
	if len(words) == 0 {
		return 0
	}
	if n <= 1 || len(words) <= n {
		seen := map[string]struct{}{}
		for _, w := range words {
			seen[w] = struct{}{}
		}
		return float64(len(seen)) / float64(len(words))
	}
	windows := chunk.Windows(len(words), n, n/2)
	sum := 0.0
	for _, w := range windows {
		seen := map[string]struct{}{}
		for _, word := range words[w.Start:w.End] {
			seen[word] = struct{}{}
		}
		sum += float64(len(seen)) / float64(w.Len())
	}
	return sum / float64(len(windows))
}

func meanStd(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) == 1 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
