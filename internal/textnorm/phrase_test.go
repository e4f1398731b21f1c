package textnorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findAll(t *testing.T, set *PhraseSet, text string) []PhraseMatch {
	t.Helper()
	got, err := set.FindAll(context.Background(), text)
	require.NoError(t, err)
	return got
}

func TestPhraseSetFindAll(t *testing.T) {
	set, err := CompilePhrases([]string{"in conclusion", "it's important to note that", "  "})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	text := "It’s important to note  that results vary. In Conclusion, more work is needed. Inconclusion is not a word."
	got := findAll(t, set, text)
	require.Len(t, got, 2)

	assert.Equal(t, "it's important to note that", got[0].Phrase)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, "It’s important to note  that", text[got[0].Start:got[0].End])

	assert.Equal(t, "in conclusion", got[1].Phrase)
	assert.Equal(t, "In Conclusion", text[got[1].Start:got[1].End])
}

func TestPhraseSetWordBoundary(t *testing.T) {
	set, err := CompilePhrases([]string{"furthermore"})
	require.NoError(t, err)
	assert.Empty(t, findAll(t, set, "furthermoreish is not a word"))
	assert.Len(t, findAll(t, set, "Furthermore, and furthermore."), 2)
	assert.Empty(t, findAll(t, set, "x_furthermore"))
}

func TestPhraseSetUnicodeBoundary(t *testing.T) {
	set, err := CompilePhrases([]string{"in summary"})
	require.NoError(t, err)

	assert.Empty(t, findAll(t, set, "Résuméin summary"))
	assert.Empty(t, findAll(t, set, "in summaryé"))

	text := "Résumé: in summary, in summary."
	got := findAll(t, set, text)
	require.Len(t, got, 2)
	assert.Equal(t, "in summary", text[got[0].Start:got[0].End])
	assert.Equal(t, "in summary", text[got[1].Start:got[1].End])

	// a rejected occurrence must not hide the next one
	got = findAll(t, set, "éin summary in summary")
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].Start)
}

func TestPhraseSetCancelled(t *testing.T) {
	set, err := CompilePhrases([]string{"in summary", "in conclusion"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = set.FindAll(ctx, "in summary")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = set.Count(ctx, "in summary")
	assert.ErrorIs(t, err, context.Canceled)
}
