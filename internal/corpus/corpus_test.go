package corpus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darved2305/VeriTextAI/internal/fingerprint"
	"github.com/darved2305/VeriTextAI/internal/model"
)

const essay = "Academic integrity requires that every borrowed idea is credited to its original author."

func TestMemoryAddLookupSource(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Add(ctx, Source{ID: "s1", Title: "Integrity", Type: model.SourceAcademic, Text: essay}))

	hashes, err := Fingerprints(ctx, Source{ID: "s1", Text: essay})
	require.NoError(t, err)
	require.NotEmpty(t, hashes)

	ids, err := mem.Lookup(ctx, hashes[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	src, err := mem.Source(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Integrity", src.Title)

	_, err = mem.Source(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, len(hashes), stats.Fingerprints)
}

func TestMemoryReplaceSource(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Add(ctx, Source{ID: "s1", Text: essay}))
	require.NoError(t, mem.Add(ctx, Source{ID: "s1", Text: "completely different words appear in this replacement text"}))

	old := fingerprint.Hash([]string{"academic", "integrity", "requires", "that", "every"})
	ids, err := mem.Lookup(ctx, old)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, []string{"s1"}, mem.IDs())
}

type singleIndex struct {
	hits  map[uint64][]string
	calls int
}

func (s *singleIndex) Lookup(_ context.Context, h uint64) ([]string, error) {
	s.calls++
	return s.hits[h], nil
}

func TestLookupAllFallsBackToSingleLookups(t *testing.T) {
	idx := &singleIndex{hits: map[uint64][]string{1: {"a"}, 3: {"b", "c"}}}
	got, err := LookupAll(context.Background(), idx, []uint64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint64][]string{1: {"a"}, 3: {"b", "c"}}, got)
	assert.Equal(t, 3, idx.calls)
}

type flakyCorpus struct {
	err   error
	calls atomic.Int32
}

func (f *flakyCorpus) Lookup(context.Context, uint64) ([]string, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *flakyCorpus) Source(_ context.Context, id string) (*Source, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestResilientMapsFailuresToUnavailable(t *testing.T) {
	inner := &flakyCorpus{err: errors.New("connection refused")}
	var reported atomic.Int32
	r := NewResilient(inner, ResilientConfig{
		Timeout:          50 * time.Millisecond,
		MaxAttempts:      2,
		FailureThreshold: 10,
		OnError:          func(string) { reported.Add(1) },
	})

	_, err := r.Lookup(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, int32(1), reported.Load())
}

func TestResilientPassesCancellationThrough(t *testing.T) {
	r := NewResilient(&flakyCorpus{err: errors.New("boom")}, ResilientConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Lookup(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestResilientNotFoundIsNotUnavailable(t *testing.T) {
	inner := &flakyCorpus{err: ErrNotFound}
	r := NewResilient(inner, ResilientConfig{MaxAttempts: 3})

	_, err := r.Source(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestResilientBreakerStopsCalls(t *testing.T) {
	inner := &flakyCorpus{err: errors.New("down")}
	r := NewResilient(inner, ResilientConfig{MaxAttempts: 1, FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := r.Lookup(ctx, 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestResilientBatchUsesInnerBatch(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Add(ctx, Source{ID: "s1", Text: essay}))
	hashes, err := Fingerprints(ctx, Source{ID: "s1", Text: essay})
	require.NoError(t, err)

	r := NewResilient(mem, ResilientConfig{RateLimit: 1000, Burst: 10})
	hits, err := r.LookupBatch(ctx, hashes)
	require.NoError(t, err)
	assert.Len(t, hits, len(hashes))

	require.NoError(t, r.Add(ctx, Source{ID: "s2", Text: essay}))
	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sources)
}
