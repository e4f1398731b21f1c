package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestObserveRun(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRun("plagiarism", "ok", 120*time.Millisecond)
	m.ObserveRun("plagiarism", "ok", 80*time.Millisecond)
	m.ObserveRun("plagiarism", "cancelled", time.Millisecond)

	assert.Equal(t, 2.0, value(t, m.RunsTotal.WithLabelValues("plagiarism", "ok")))
	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("plagiarism", "cancelled")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("plagiarism", "ok", time.Second)
		m.ObserveStage("normalize", "ok", time.Millisecond)
		m.ObserveScores(1, 2, 3, 0)
		m.CorpusError("lookup")
		m.SourceIngested()
		m.CheckPersisted("completed")
	})
}

func TestCounters(t *testing.T) {
	m := New(nil)
	m.CorpusError("lookup")
	m.SourceIngested()
	m.CheckPersisted("completed")
	assert.Equal(t, 1.0, value(t, m.CorpusErrors.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, value(t, m.SourcesIngested))
	assert.Equal(t, 1.0, value(t, m.ChecksPersisted.WithLabelValues("completed")))
}
