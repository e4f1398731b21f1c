// Package circuitbreaker stops calling a failing dependency for a cooldown
// period after a run of consecutive failures.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before a probe is allowed.
	Cooldown time.Duration
	// IsFailure classifies results; nil counts every non-nil error except
	// context cancellation.
	IsFailure func(error) bool
	Logger    *zap.Logger
}

type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open. While half-open only one probe
// call is let through at a time.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.current()
	b.probing = false
	if !b.isFailure(err) {
		b.failures = 0
		if state != StateClosed {
			b.transition(StateClosed)
		}
		return
	}
	b.failures++
	if state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// current must be called with mu held.
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.cfg.Logger.Info("circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", b.state.String()),
		zap.String("to", to.String()),
		zap.Int("failures", b.failures),
	)
	b.state = to
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if b.cfg.IsFailure != nil {
		return b.cfg.IsFailure(err)
	}
	return !errors.Is(err, context.Canceled)
}
