// v1
// internal/kafkaio/breaker.go
package kafkaio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the circuit is open: publishes fail fast
// instead of blocking the control loop on an unreachable broker.
var ErrBreakerOpen = errors.New("kafka circuit open")

// BreakerConfig tunes the publish circuit breaker. Zero values fall back to
// the defaults below.
type BreakerConfig struct {
	MaxFailures  int           // consecutive failures before the circuit opens
	ResetTimeout time.Duration // how long the circuit stays open before a probe
}

const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker guards broker writes. Closed passes calls through and counts
// consecutive failures; MaxFailures of them open the circuit. While open,
// calls return ErrBreakerOpen until ResetTimeout has passed, then a single
// half-open probe decides between closing and re-opening.
type breaker struct {
	lg  *slog.Logger
	cfg BreakerConfig

	mu       sync.Mutex
	st       breakerState
	fails    int
	openedAt time.Time
}

func newBreaker(cfg BreakerConfig, lg *slog.Logger) *breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &breaker{lg: lg, cfg: cfg}
}

func (b *breaker) execute(ctx context.Context, op func(context.Context) error) error {
	b.mu.Lock()
	switch b.st {
	case breakerOpen:
		if time.Since(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.st = breakerHalfOpen
		b.lg.Info("kafka circuit half-open, probing broker")
	case breakerHalfOpen:
		// A probe is already in flight; don't pile on.
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// onFailure and onSuccess are called with b.mu held.
func (b *breaker) onFailure() {
	if b.st == breakerHalfOpen {
		b.st = breakerOpen
		b.openedAt = time.Now()
		b.fails = 0
		b.lg.Warn("kafka circuit re-opened, probe failed", "resetTimeout", b.cfg.ResetTimeout)
		return
	}
	b.fails++
	if b.fails >= b.cfg.MaxFailures {
		b.st = breakerOpen
		b.openedAt = time.Now()
		b.fails = 0
		b.lg.Warn("kafka circuit opened, publishes fast-fail",
			"failures", b.cfg.MaxFailures, "resetTimeout", b.cfg.ResetTimeout)
	}
}

func (b *breaker) onSuccess() {
	if b.st == breakerHalfOpen {
		b.lg.Info("kafka circuit closed, broker recovered")
	}
	b.st = breakerClosed
	b.fails = 0
}

func (b *breaker) state() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}
