package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{0, SeverityLow},
		{19.9, SeverityLow},
		{20, SeverityMedium},
		{39.99, SeverityMedium},
		{40, SeverityHigh},
		{69.9, SeverityHigh},
		{70, SeverityCritical},
		{100, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFor(tc.score), "score %.2f", tc.score)
	}
}

func TestParseCheckType(t *testing.T) {
	ct, err := ParseCheckType("")
	require.NoError(t, err)
	assert.Equal(t, CheckPlagiarism, ct)

	ct, err = ParseCheckType("code_similarity")
	require.NoError(t, err)
	assert.Equal(t, CheckCodeSimilarity, ct)

	_, err = ParseCheckType("grammar")
	assert.Error(t, err)
}

func TestRecordFieldNames(t *testing.T) {
	rec := NewRecord(&AnalysisResult{OverallScore: 12.5, WordCount: 10}, 42)
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"overallScore", "aiScore", "paraphraseScore", "originalityScore",
		"wordCount", "sentenceCount", "sourceCount", "flaggedSectionCount",
		"processingTimeMs", "matchedSources", "flaggedSections",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, float64(42), fields["processingTimeMs"])
	assert.Equal(t, []any{}, fields["matchedSources"])
}

func TestDetectorOutputMerge(t *testing.T) {
	a := DetectorOutput{Score: 70, Signals: []Signal{{Name: "a"}}}
	b := DetectorOutput{Score: 50, Signals: []Signal{{Name: "b"}}, Warnings: []string{"skipped"}}
	got := a.Merge(b)
	assert.Equal(t, 100.0, got.Score)
	assert.Len(t, got.Signals, 2)
	assert.Equal(t, []string{"skipped"}, got.Warnings)
	assert.Len(t, a.Signals, 1, "receiver is not modified")
}
