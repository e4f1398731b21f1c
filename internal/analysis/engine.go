// Package analysis runs the detectors over one document and assembles the
// scored report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/aggregate"
	"github.com/darved2305/VeriTextAI/internal/aidetect"
	"github.com/darved2305/VeriTextAI/internal/codescan"
	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/fingerprint"
	"github.com/darved2305/VeriTextAI/internal/matcher"
	"github.com/darved2305/VeriTextAI/internal/metrics"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/paraphrase"
	"github.com/darved2305/VeriTextAI/internal/pipeline"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

type Options struct {
	// Corpus is optional; without it source matching finds nothing.
	Corpus                corpus.Corpus
	Rules                 *config.Rules
	GapTokens             int
	TolerateCorpusFailure bool
	Plan                  Plan
	Workers               int
	Logger                *zap.Logger
	Metrics               *metrics.Metrics
}

// Engine is safe for concurrent use; each Analyze call owns its state.
type Engine struct {
	matcher    *matcher.Matcher
	ai         *aidetect.Detector
	paraphrase *paraphrase.Detector
	code       *codescan.Detector
	plan       Plan
	workers    int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := opts.Rules
	if rules == nil {
		var err error
		if rules, err = config.DefaultRules(); err != nil {
			return nil, err
		}
	}
	plan := opts.Plan
	if plan == nil {
		plan = DefaultPlan()
	}

	ai, err := aidetect.New(rules.AI, logger.Named("aidetect"))
	if err != nil {
		return nil, err
	}
	para, err := paraphrase.New(rules.Paraphrase, paraphrase.Options{
		Corpus:                opts.Corpus,
		TolerateCorpusFailure: opts.TolerateCorpusFailure,
		Logger:                logger.Named("paraphrase"),
	})
	if err != nil {
		return nil, err
	}
	code, err := codescan.New(rules.Code, logger.Named("codescan"))
	if err != nil {
		return nil, err
	}
	return &Engine{
		matcher: matcher.New(opts.Corpus, matcher.Options{
			GapTokens:             opts.GapTokens,
			TolerateCorpusFailure: opts.TolerateCorpusFailure,
			Logger:                logger.Named("matcher"),
		}),
		ai:         ai,
		paraphrase: para,
		code:       code,
		plan:       plan,
		workers:    opts.Workers,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// run carries the per-call state of one Analyze invocation.
type run struct {
	id     string
	traces []model.StageTrace
	e      *Engine
}

// stage times fn and records a trace the way every stage is reported.
func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.traces = append(r.traces, r.e.trace(name, start, err))
	return err
}

func (e *Engine) trace(name string, start time.Time, err error) model.StageTrace {
	d := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.ObserveStage(name, status, d)
	return model.StageTrace{Name: name, DurationMs: d.Milliseconds(), Status: status}
}

func (e *Engine) Analyze(ctx context.Context, raw string, checkType model.CheckType) (*model.AnalysisResult, error) {
	start := time.Now()
	res, err := e.analyze(ctx, raw, checkType)
	outcome := outcomeOf(err)
	e.metrics.ObserveRun(string(checkType), outcome, time.Since(start))
	if err != nil {
		e.logger.Warn("analysis run failed",
			zap.String("check_type", string(checkType)),
			zap.String("outcome", outcome),
			zap.Int("chars", len(raw)),
			zap.Error(err),
		)
		return nil, err
	}
	e.metrics.ObserveScores(res.OverallScore, res.AIScore, res.ParaphraseScore, len(res.MatchedSources))
	e.logger.Info("analysis run completed",
		zap.String("run_id", res.RunID),
		zap.String("check_type", string(checkType)),
		zap.Int("words", res.WordCount),
		zap.Float64("overall", res.OverallScore),
		zap.Int("sources", len(res.MatchedSources)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, raw string, checkType model.CheckType) (*model.AnalysisResult, error) {
	if _, ok := e.plan[checkType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCheckType, checkType)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	r := &run{id: uuid.NewString(), e: e}
	e.logger.Debug("analysis run started",
		zap.String("run_id", r.id),
		zap.String("check_type", string(checkType)),
		zap.Int("chars", len(raw)),
	)

	normalize := textnorm.Normalize
	if checkType == model.CheckCodeSimilarity {
		normalize = textnorm.NormalizeLines
	}
	var text *textnorm.Text
	err := r.stage(StageNormalize, func() error {
		var err error
		if text, err = normalize(raw); err != nil {
			return err
		}
		return text.CheckOffsets()
	})
	if errors.Is(err, textnorm.ErrEmptyInput) {
		return nil, err
	}
	if err != nil {
		return nil, &FailedError{Stage: StageNormalize, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	runSource := e.plan.has(checkType, StageSource)
	var set *fingerprint.Set
	if runSource {
		err := r.stage(StageFingerprint, func() error {
			var err error
			set, err = fingerprint.Compute(ctx, text)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}
			return nil, &FailedError{Stage: StageFingerprint, Err: err}
		}
	}

	var (
		match     *matcher.Result
		aiOut     model.DetectorOutput
		paraOut   model.DetectorOutput
		structOut model.DetectorOutput
		codeOut   *model.DetectorOutput
	)
	var tasks []pipeline.Task
	for _, name := range e.plan[checkType] {
		switch name {
		case StageSource:
			tasks = append(tasks, pipeline.Task{Name: name, Run: func(ctx context.Context) error {
				var err error
				match, err = e.matcher.Match(ctx, text, set)
				return err
			}})
		case StageAI:
			tasks = append(tasks, pipeline.Task{Name: name, Run: func(ctx context.Context) error {
				var err error
				aiOut, err = e.ai.Detect(ctx, text)
				return err
			}})
		case StageParaphrase:
			tasks = append(tasks, pipeline.Task{Name: name, Run: func(ctx context.Context) error {
				var err error
				paraOut, err = e.paraphrase.Detect(ctx, text)
				return err
			}})
		case StageStructural:
			tasks = append(tasks, pipeline.Task{Name: name, Run: func(ctx context.Context) error {
				var err error
				structOut, err = e.paraphrase.DetectStructural(ctx, text)
				return err
			}})
		case StageCode:
			tasks = append(tasks, pipeline.Task{Name: name, Run: func(ctx context.Context) error {
				out, err := e.code.Detect(ctx, text)
				codeOut = &out
				return err
			}})
		}
	}

	// traces are collected per task and appended after the join
	taskTraces := make([]model.StageTrace, len(tasks))
	for i := range tasks {
		i, inner := i, tasks[i].Run
		tasks[i].Run = func(ctx context.Context) error {
			started := time.Now()
			err := inner(ctx)
			taskTraces[i] = e.trace(tasks[i].Name, started, err)
			return err
		}
	}
	errs := pipeline.FanOut(ctx, e.workers, tasks)
	r.traces = append(r.traces, taskTraces...)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, corpus.ErrUnavailable) {
			return nil, err
		}
		return nil, &FailedError{Stage: tasks[i].Name, Err: err}
	}

	var res model.AnalysisResult
	err = r.stage(StageAggregate, func() error {
		in := aggregate.Input{
			WordCount:     text.WordCount(),
			SentenceCount: text.SentenceCount(),
			AI:            aiOut,
			Paraphrase:    paraOut.Merge(structOut),
			Code:          codeOut,
		}
		if match != nil {
			in.Sources = match.Sources
			in.Plagiarism = match.Sections
			in.Degraded = match.Degraded
			if match.Warning != "" {
				in.Warnings = append(in.Warnings, match.Warning)
			}
		}
		res = aggregate.Aggregate(in)
		return validate(text, &res)
	})
	if err != nil {
		return nil, &FailedError{Stage: StageAggregate, Err: err}
	}

	res.RunID = r.id
	res.CheckType = checkType
	res.Traces = r.traces
	return &res, nil
}

// validate checks offsets and source references before a result leaves the
// engine.
func validate(text *textnorm.Text, res *model.AnalysisResult) error {
	ids := make(map[string]struct{}, len(res.MatchedSources))
	for _, s := range res.MatchedSources {
		ids[s.SourceID] = struct{}{}
		for _, span := range s.Spans {
			if !text.ValidSpan(span.Start, span.End) {
				return fmt.Errorf("source %s has invalid span [%d,%d)", s.SourceID, span.Start, span.End)
			}
		}
	}
	for _, sec := range res.FlaggedSections {
		if !text.ValidSpan(sec.StartOffset, sec.EndOffset) {
			return fmt.Errorf("%s section has invalid range [%d,%d)", sec.Type, sec.StartOffset, sec.EndOffset)
		}
		if sec.Type == model.SectionPlagiarism {
			if _, ok := ids[sec.SourceRef]; !ok {
				return fmt.Errorf("plagiarism section references unknown source %q", sec.SourceRef)
			}
		} else if sec.SourceRef != "" {
			return fmt.Errorf("%s section must not reference a source", sec.Type)
		}
	}
	for _, v := range []float64{res.OverallScore, res.AIScore, res.ParaphraseScore, res.CodeStructureScore, res.OriginalityScore} {
		if v < 0 || v > 100 {
			return fmt.Errorf("score %.1f out of range", v)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	var failed *FailedError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrCorpusUnavailable):
		return "corpus_unavailable"
	case errors.Is(err, ErrInvalidCheckType):
		return "invalid"
	case errors.As(err, &failed):
		return "failed"
	default:
		return "error"
	}
}
