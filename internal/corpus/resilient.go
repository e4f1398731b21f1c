package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/darved2305/VeriTextAI/pkg/circuitbreaker"
	"github.com/darved2305/VeriTextAI/pkg/retry"
)

type ResilientConfig struct {
	Timeout          time.Duration
	MaxAttempts      int
	FailureThreshold int
	Cooldown         time.Duration
	// RateLimit caps backend calls per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
	// OnError is called for every call that ends in ErrUnavailable.
	OnError func(op string)
}

// Resilient guards a remote corpus. Every backend failure surfaces as
// ErrUnavailable; cancellation of the caller's context surfaces as the
// context error.
type Resilient struct {
	inner   Corpus
	cfg     ResilientConfig
	policy  retry.Policy
	breaker *circuitbreaker.Breaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewResilient(inner Corpus, cfg ResilientConfig) *Resilient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	policy.Logger = logger
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, circuitbreaker.ErrOpen) && !errors.Is(err, ErrNotFound)
	}
	r := &Resilient{
		inner:  inner,
		cfg:    cfg,
		policy: policy,
		breaker: circuitbreaker.New("corpus", circuitbreaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			Cooldown:         cfg.Cooldown,
			IsFailure: func(err error) bool {
				return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
			},
			Logger: logger,
		}),
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return r
}

func (r *Resilient) Lookup(ctx context.Context, hash uint64) ([]string, error) {
	var ids []string
	err := r.call(ctx, "lookup", func(ctx context.Context) error {
		var err error
		ids, err = r.inner.Lookup(ctx, hash)
		return err
	})
	return ids, err
}

func (r *Resilient) LookupBatch(ctx context.Context, hashes []uint64) (map[uint64][]string, error) {
	var hits map[uint64][]string
	err := r.call(ctx, "lookup_batch", func(ctx context.Context) error {
		var err error
		hits, err = LookupAll(ctx, r.inner, hashes)
		return err
	})
	return hits, err
}

func (r *Resilient) Source(ctx context.Context, id string) (*Source, error) {
	var src *Source
	err := r.call(ctx, "source", func(ctx context.Context) error {
		var err error
		src, err = r.inner.Source(ctx, id)
		return err
	})
	return src, err
}

func (r *Resilient) Add(ctx context.Context, src Source) error {
	w, ok := r.inner.(Writer)
	if !ok {
		return fmt.Errorf("corpus backend is read-only")
	}
	return w.Add(ctx, src)
}

func (r *Resilient) Stats(ctx context.Context) (Stats, error) {
	s, ok := r.inner.(StatsReporter)
	if !ok {
		return Stats{}, fmt.Errorf("corpus backend does not report stats")
	}
	return s.Stats(ctx)
}

func (r *Resilient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return r.unavailable(op, err)
		}
	}
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		return r.breaker.Execute(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
			return fn(callCtx)
		})
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return r.unavailable(op, err)
	}
}

func (r *Resilient) unavailable(op string, err error) error {
	r.logger.Warn("corpus call failed", zap.String("op", op), zap.Error(err))
	if r.cfg.OnError != nil {
		r.cfg.OnError(op)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
