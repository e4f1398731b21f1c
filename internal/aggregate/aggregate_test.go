package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darved2305/VeriTextAI/internal/model"
)

func TestAggregateFormula(t *testing.T) {
	res := Aggregate(Input{
		WordCount:     120,
		SentenceCount: 6,
		Sources: []model.MatchedSource{
			{SourceID: "a", MatchPercentage: 60},
			{SourceID: "b", MatchPercentage: 20},
		},
		AI:         model.DetectorOutput{Score: 30},
		Paraphrase: model.DetectorOutput{Score: 10},
	})

	// 40*0.5 + 30*0.3 + 10*0.2
	assert.Equal(t, 31.0, res.OverallScore)
	assert.Equal(t, 69.0, res.OriginalityScore)
	assert.Equal(t, 30.0, res.AIScore)
	assert.Equal(t, 10.0, res.ParaphraseScore)
	assert.Equal(t, 120, res.WordCount)
	assert.False(t, res.Degraded)
}

func TestAggregateCodeWeighting(t *testing.T) {
	res := Aggregate(Input{
		Sources: []model.MatchedSource{{SourceID: "a", MatchPercentage: 40}},
		Code:    &model.DetectorOutput{Score: 30},
	})

	// 40*0.5 + 30*0.5
	assert.Equal(t, 35.0, res.OverallScore)
	assert.Equal(t, 65.0, res.OriginalityScore)
	assert.Equal(t, 30.0, res.CodeStructureScore)
	assert.Zero(t, res.AIScore)
	assert.Zero(t, res.ParaphraseScore)
}

func TestAggregateNoSources(t *testing.T) {
	res := Aggregate(Input{})
	assert.Zero(t, res.OverallScore)
	assert.Equal(t, 100.0, res.OriginalityScore)
	assert.NotNil(t, res.MatchedSources)
	assert.Empty(t, res.FlaggedSections)
}

func TestAggregateBoundsAndRounding(t *testing.T) {
	res := Aggregate(Input{
		Sources:    []model.MatchedSource{{SourceID: "a", MatchPercentage: 100}},
		AI:         model.DetectorOutput{Score: 100},
		Paraphrase: model.DetectorOutput{Score: 100},
	})
	assert.Equal(t, 100.0, res.OverallScore)
	assert.Equal(t, 0.0, res.OriginalityScore)

	res = Aggregate(Input{
		Sources: []model.MatchedSource{{SourceID: "a", MatchPercentage: 100.0 / 3}},
	})
	assert.Equal(t, 33.3, res.MatchedSources[0].MatchPercentage)
	assert.Equal(t, 16.7, res.OverallScore)
	assert.Equal(t, 83.3, res.OriginalityScore)
}

func TestAggregateOriginalityComplement(t *testing.T) {
	for _, ai := range []float64{0, 12.34, 55.55, 99.99} {
		res := Aggregate(Input{AI: model.DetectorOutput{Score: ai}})
		assert.InDelta(t, 100, res.OverallScore+res.OriginalityScore, 0.1+1e-9)
		assert.GreaterOrEqual(t, res.OriginalityScore, 0.0)
	}
}

func TestDedupeAndOrder(t *testing.T) {
	sections := Dedupe([]model.FlaggedSection{
		{Type: model.SectionParaphrased, StartOffset: 10, EndOffset: 20},
		{Type: model.SectionAIGenerated, StartOffset: 0, EndOffset: 30},
		{Type: model.SectionPlagiarism, StartOffset: 0, EndOffset: 30, SourceRef: "a"},
		{Type: model.SectionParaphrased, StartOffset: 10, EndOffset: 20, Explanation: "dup"},
		{Type: model.SectionAIGenerated, StartOffset: 0, EndOffset: 5},
	})
	if assert.Len(t, sections, 4) {
		assert.Equal(t, 5, sections[0].EndOffset)
		assert.Equal(t, model.SectionAIGenerated, sections[1].Type)
		assert.Equal(t, model.SectionPlagiarism, sections[2].Type)
		assert.Equal(t, model.SectionParaphrased, sections[3].Type)
		assert.Empty(t, sections[3].Explanation)
	}
}

func TestAggregateCarriesWarnings(t *testing.T) {
	res := Aggregate(Input{
		Paraphrase: model.DetectorOutput{Warnings: []string{"structural paraphrase check skipped"}},
	})
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{"structural paraphrase check skipped"}, res.Warnings)
}
