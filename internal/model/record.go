package model

// Record is the persisted shape consumed by the storage layer. Field names
// are part of the storage contract and must not change.
type Record struct {
	OverallScore        float64          `json:"overallScore"`
	AIScore             float64          `json:"aiScore"`
	ParaphraseScore     float64          `json:"paraphraseScore"`
	OriginalityScore    float64          `json:"originalityScore"`
	WordCount           int              `json:"wordCount"`
	SentenceCount       int              `json:"sentenceCount"`
	SourceCount         int              `json:"sourceCount"`
	FlaggedSectionCount int              `json:"flaggedSectionCount"`
	ProcessingTimeMs    int64            `json:"processingTimeMs"`
	MatchedSources      []MatchedSource  `json:"matchedSources"`
	FlaggedSections     []FlaggedSection `json:"flaggedSections"`
}

func NewRecord(r *AnalysisResult, processingTimeMs int64) Record {
	sources := r.MatchedSources
	if sources == nil {
		sources = []MatchedSource{}
	}
	sections := r.FlaggedSections
	if sections == nil {
		sections = []FlaggedSection{}
	}
	return Record{
		OverallScore:        r.OverallScore,
		AIScore:             r.AIScore,
		ParaphraseScore:     r.ParaphraseScore,
		OriginalityScore:    r.OriginalityScore,
		WordCount:           r.WordCount,
		SentenceCount:       r.SentenceCount,
		SourceCount:         len(sources),
		FlaggedSectionCount: len(sections),
		ProcessingTimeMs:    processingTimeMs,
		MatchedSources:      sources,
		FlaggedSections:     sections,
	}
}
