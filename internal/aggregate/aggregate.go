// Package aggregate combines detector outputs into the final report.
package aggregate

import (
	"math"
	"sort"

	"github.com/darved2305/VeriTextAI/internal/model"
)

const (
	SourceWeight     = 0.5
	AIWeight         = 0.3
	ParaphraseWeight = 0.2

	// code checks weigh structure density against source overlap
	CodeSourceWeight = 0.5
	CodeWeight       = 0.5
)

type Input struct {
	WordCount     int
	SentenceCount int
	Sources       []model.MatchedSource
	AI            model.DetectorOutput
	Paraphrase    model.DetectorOutput
	// Code is set for code checks and replaces the prose weighting.
	Code *model.DetectorOutput
	// Plagiarism sections come from the source matcher.
	Plagiarism []model.FlaggedSection
	Degraded   bool
	Warnings   []string
}

// Aggregate computes the weighted overall score and originality, merges all
// sections, and rounds scores to one decimal. Rounding happens only here.
func Aggregate(in Input) model.AnalysisResult {
	sourceMatch := 0.0
	if len(in.Sources) > 0 {
		for _, s := range in.Sources {
			sourceMatch += s.MatchPercentage
		}
		sourceMatch /= float64(len(in.Sources))
	}
	overall := clamp(sourceMatch*SourceWeight + in.AI.Score*AIWeight + in.Paraphrase.Score*ParaphraseWeight)
	codeScore := 0.0
	if in.Code != nil {
		codeScore = clamp(in.Code.Score)
		overall = clamp(sourceMatch*CodeSourceWeight + codeScore*CodeWeight)
	}
	originality := math.Max(0, 100-overall)

	sources := make([]model.MatchedSource, len(in.Sources))
	for i, s := range in.Sources {
		s.MatchPercentage = Round1(s.MatchPercentage)
		sources[i] = s
	}

	sections := make([]model.FlaggedSection, 0, len(in.Plagiarism)+len(in.AI.Sections)+len(in.Paraphrase.Sections))
	sections = append(sections, in.Plagiarism...)
	sections = append(sections, in.AI.Sections...)
	sections = append(sections, in.Paraphrase.Sections...)

	warnings := append([]string(nil), in.Warnings...)
	warnings = append(warnings, in.AI.Warnings...)
	warnings = append(warnings, in.Paraphrase.Warnings...)
	if in.Code != nil {
		warnings = append(warnings, in.Code.Warnings...)
	}

	return model.AnalysisResult{
		OverallScore:       Round1(overall),
		AIScore:            Round1(clamp(in.AI.Score)),
		ParaphraseScore:    Round1(clamp(in.Paraphrase.Score)),
		CodeStructureScore: Round1(codeScore),
		OriginalityScore:   Round1(originality),
		WordCount:          in.WordCount,
		SentenceCount:      in.SentenceCount,
		MatchedSources:     sources,
		FlaggedSections:    Dedupe(sections),
		Degraded:           in.Degraded || len(warnings) > 0,
		Warnings:           warnings,
	}
}

// Dedupe drops sections with the same type and range and sorts the rest by
// start offset, end offset, then type. The first occurrence wins.
func Dedupe(sections []model.FlaggedSection) []model.FlaggedSection {
	type key struct {
		t          model.SectionType
		start, end int
	}
	seen := make(map[key]struct{}, len(sections))
	out := make([]model.FlaggedSection, 0, len(sections))
	for _, s := range sections {
		k := key{s.Type, s.StartOffset, s.EndOffset}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartOffset != b.StartOffset {
			return a.StartOffset < b.StartOffset
		}
		if a.EndOffset != b.EndOffset {
			return a.EndOffset < b.EndOffset
		}
		return a.Type < b.Type
	})
	return out
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
