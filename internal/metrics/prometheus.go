package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var scoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	CorpusErrors    *prometheus.CounterVec
	Scores          *prometheus.HistogramVec
	MatchedSources  prometheus.Histogram
	SourcesIngested prometheus.Counter
	ChecksPersisted *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the engine metrics on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritext_analysis_runs_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"check_type", "outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veritext_analysis_duration_seconds",
				Help:    "Analysis run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"check_type"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veritext_stage_duration_seconds",
				Help:    "Duration of individual analysis stages in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage", "status"},
		),
		CorpusErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritext_corpus_errors_total",
				Help: "Corpus calls that ended unavailable",
			},
			[]string{"op"},
		),
		Scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veritext_score",
				Help:    "Distribution of emitted scores",
				Buckets: scoreBuckets,
			},
			[]string{"kind"},
		),
		MatchedSources: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "veritext_matched_sources_count",
				Help:    "Number of matched sources per run",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		SourcesIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "veritext_corpus_sources_ingested_total",
				Help: "Total reference sources added to the corpus",
			},
		),
		ChecksPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritext_checks_persisted_total",
				Help: "Analysis records written to storage",
			},
			[]string{"status"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.CorpusErrors,
		m.Scores,
		m.MatchedSources,
		m.SourcesIngested,
		m.ChecksPersisted,
	)
	return m
}

// The Observe helpers accept a nil receiver so callers can run without
// metrics.

func (m *Metrics) ObserveRun(checkType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(checkType, outcome).Inc()
	m.RunDuration.WithLabelValues(checkType).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveScores(overall, ai, paraphrase float64, sources int) {
	if m == nil {
		return
	}
	m.Scores.WithLabelValues("overall").Observe(overall)
	m.Scores.WithLabelValues("ai").Observe(ai)
	m.Scores.WithLabelValues("paraphrase").Observe(paraphrase)
	m.MatchedSources.Observe(float64(sources))
}

func (m *Metrics) CorpusError(op string) {
	if m == nil {
		return
	}
	m.CorpusErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) SourceIngested() {
	if m == nil {
		return
	}
	m.SourcesIngested.Inc()
}

func (m *Metrics) CheckPersisted(status string) {
	if m == nil {
		return
	}
	m.ChecksPersisted.WithLabelValues(status).Inc()
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
