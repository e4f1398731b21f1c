package model

import "fmt"

type CheckType string

const (
	CheckPlagiarism     CheckType = "plagiarism"
	CheckAIDetection    CheckType = "ai_detection"
	CheckParaphrase     CheckType = "paraphrase"
	CheckCodeSimilarity CheckType = "code_similarity"
)

func ParseCheckType(raw string) (CheckType, error) {
	switch CheckType(raw) {
	case CheckPlagiarism, CheckAIDetection, CheckParaphrase, CheckCodeSimilarity:
		return CheckType(raw), nil
	case "":
		return CheckPlagiarism, nil
	default:
		return "", fmt.Errorf("unknown check type %q", raw)
	}
}

type SectionType string

const (
	SectionPlagiarism  SectionType = "plagiarism"
	SectionAIGenerated SectionType = "ai_generated"
	SectionParaphrased SectionType = "paraphrased"
)

type SourceType string

const (
	SourceWeb          SourceType = "web"
	SourceAcademic     SourceType = "academic"
	SourceDatabase     SourceType = "database"
	SourceStudentPaper SourceType = "student_paper"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFor buckets a 0-100 score.
func SeverityFor(score float64) Severity {
	switch {
	case score < 20:
		return SeverityLow
	case score < 40:
		return SeverityMedium
	case score < 70:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// MatchSpan is a half-open byte range in the analysed text together with the
// range it was confirmed against in the source document.
type MatchSpan struct {
	Start       int `json:"start"`
	End         int `json:"end"`
	SourceStart int `json:"sourceStart"`
	SourceEnd   int `json:"sourceEnd"`
	Tokens      int `json:"tokens"`
}

type MatchedSource struct {
	SourceID        string      `json:"sourceId"`
	URL             string      `json:"url,omitempty"`
	Title           string      `json:"title,omitempty"`
	Author          string      `json:"author,omitempty"`
	Type            SourceType  `json:"type"`
	MatchPercentage float64     `json:"matchPercentage"`
	Severity        Severity    `json:"severity"`
	MatchedText     string      `json:"matchedText"`
	StartPosition   int         `json:"startPosition"`
	EndPosition     int         `json:"endPosition"`
	Spans           []MatchSpan `json:"spans"`
}

type FlaggedSection struct {
	Type        SectionType `json:"type"`
	Text        string      `json:"text"`
	StartOffset int         `json:"startOffset"`
	EndOffset   int         `json:"endOffset"`
	Confidence  float64     `json:"confidence"`
	Severity    Severity    `json:"severity"`
	Explanation string      `json:"explanation,omitempty"`
	SourceRef   string      `json:"sourceRef,omitempty"`
}

type StageTrace struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	Status     string `json:"status"`
}

// Signal is one scoring indicator that fired, kept for logs and reports.
type Signal struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// DetectorOutput is what every detector hands to the aggregator.
type DetectorOutput struct {
	Score    float64
	Sections []FlaggedSection
	Signals  []Signal
	// Warnings explain signals that were skipped, e.g. on corpus failure.
	Warnings []string
}

// Merge folds other into o. Scores add and are capped at 100.
func (o DetectorOutput) Merge(other DetectorOutput) DetectorOutput {
	o.Score = min(100, o.Score+other.Score)
	o.Sections = append(o.Sections, other.Sections...)
	o.Signals = append(o.Signals, other.Signals...)
	o.Warnings = append(o.Warnings, other.Warnings...)
	return o
}

type AnalysisResult struct {
	RunID            string           `json:"runId"`
	CheckType        CheckType        `json:"checkType"`
	OverallScore     float64          `json:"overallScore"`
	AIScore          float64          `json:"aiScore"`
	ParaphraseScore  float64          `json:"paraphraseScore"`
	// CodeStructureScore is set for code_similarity checks only.
	CodeStructureScore float64 `json:"codeStructureScore,omitempty"`
	OriginalityScore float64          `json:"originalityScore"`
	WordCount        int              `json:"wordCount"`
	SentenceCount    int              `json:"sentenceCount"`
	MatchedSources   []MatchedSource  `json:"matchedSources"`
	FlaggedSections  []FlaggedSection `json:"flaggedSections"`
	Degraded         bool             `json:"degraded"`
	Warnings         []string         `json:"warnings,omitempty"`
	Traces           []StageTrace     `json:"traces,omitempty"`
}
