// Package codescan scores the structural density of source code: how many
// control-flow and declaration shapes appear per non-blank line.
package codescan

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

type Detector struct {
	patterns []pattern
	weight   float64
	logger   *zap.Logger
}

func New(rules config.CodeRules, logger *zap.Logger) (*Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make([]string, 0, len(rules.Patterns))
	for name := range rules.Patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &Detector{weight: rules.DensityWeight, logger: logger}
	for _, name := range names {
		re, err := regexp.Compile(rules.Patterns[name])
		if err != nil {
			return nil, fmt.Errorf("code pattern %s: %w", name, err)
		}
		d.patterns = append(d.patterns, pattern{name: name, re: re})
	}
	return d, nil
}

// Detect expects text segmented by textnorm.NormalizeLines so that the
// sentence count is the number of non-blank lines.
func (d *Detector) Detect(ctx context.Context, text *textnorm.Text) (model.DetectorOutput, error) {
	var out model.DetectorOutput
	lines := text.SentenceCount()
	if lines == 0 {
		return out, nil
	}
	total := 0
	for _, p := range d.patterns {
		if err := ctx.Err(); err != nil {
			return model.DetectorOutput{}, err
		}
		n := len(p.re.FindAllStringIndex(text.Source, -1))
		if n == 0 {
			continue
		}
		total += n
		out.Signals = append(out.Signals, model.Signal{Name: "code_" + p.name, Weight: float64(n), Detail: fmt.Sprintf("%d matches", n)})
	}
	density := float64(total) / float64(lines)
	out.Score = math.Min(100, density*d.weight)
	d.logger.Debug("code structure scan done",
		zap.Int("lines", lines),
		zap.Int("matches", total),
		zap.Float64("score", out.Score),
	)
	return out, nil
}
