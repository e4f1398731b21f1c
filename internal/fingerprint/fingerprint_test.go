package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

func mustNormalize(t *testing.T, s string) *textnorm.Text {
	t.Helper()
	text, err := textnorm.Normalize(s)
	require.NoError(t, err)
	return text
}

func TestComputeShingleCount(t *testing.T) {
	text := mustNormalize(t, "one two three four five six seven")
	set, err := Compute(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, ShingleSize, set.K)
	assert.Equal(t, 3, set.Len())

	first := set.Spans[0]
	assert.Equal(t, "one two three four five", text.Slice(first.Start, first.End))
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, ShingleKeys(text, first))
}

func TestComputeShortText(t *testing.T) {
	set, err := Compute(context.Background(), mustNormalize(t, "too short"))
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestComputeIgnoresCaseAndPunctuation(t *testing.T) {
	a, err := Compute(context.Background(), mustNormalize(t, "The quick brown fox jumps"))
	require.NoError(t, err)
	b, err := Compute(context.Background(), mustNormalize(t, "the QUICK, brown -- fox jumps!"))
	require.NoError(t, err)
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())
	assert.Equal(t, a.Hashes[0], b.Hashes[0])
}

func TestComputeDeterministic(t *testing.T) {
	text := mustNormalize(t, "alpha beta gamma delta epsilon zeta eta theta")
	a, err := Compute(context.Background(), text)
	require.NoError(t, err)
	b, err := Compute(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, a.Hashes, b.Hashes)
	assert.Equal(t, Hash([]string{"alpha", "beta", "gamma", "delta", "epsilon"}), a.Hashes[0])
}

func TestComputeRepeatedShingles(t *testing.T) {
	text := mustNormalize(t, "a b c d e a b c d e")
	set, err := Compute(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 6, set.Len())
	assert.Len(t, set.Unique(), 5)
	assert.Len(t, set.Positions[set.Hashes[0]], 2)
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, mustNormalize(t, "one two three four five six"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeBagOrderInsensitive(t *testing.T) {
	a, err := ComputeBag(context.Background(), mustNormalize(t, "students submitted essays early"))
	require.NoError(t, err)
	b, err := ComputeBag(context.Background(), mustNormalize(t, "early essays were submitted by the students"))
	require.NoError(t, err)
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())
	assert.Equal(t, a.Hashes[0], b.Hashes[0])

	ordered, err := Compute(context.Background(), mustNormalize(t, "students submitted essays early today"))
	require.NoError(t, err)
	assert.NotEqual(t, ordered.Hashes[0], a.Hashes[0])
}

func TestStem(t *testing.T) {
	assert.Equal(t, "submitt", Stem("submitted"))
	assert.Equal(t, "essay", Stem("essays"))
	assert.Equal(t, "is", Stem("is"))
}
