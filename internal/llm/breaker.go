package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// #region state
// BreakerState is the classic closed/open/half-open state machine.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// #endregion state

// #region breaker
// Breaker isolates a flapping upstream capability. After maxFailures
// consecutive failures it rejects calls for cooldown, then admits a single
// trial call. It is a failure isolator, not a retry mechanism.
type Breaker struct {
	maxFailures uint32
	cooldown    time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures uint32
	openedAt time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures uint32, cooldown time.Duration) *Breaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown}
}

// State reports the current state, advancing open to half-open when the
// cooldown has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() BreakerState {
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
	}
	return b.state
}

// do runs fn under breaker admission control.
func (b *Breaker) do(fn func() error) error {
	b.mu.Lock()
	if b.stateLocked() == BreakerOpen {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.state = BreakerOpen
			b.openedAt = time.Now()
		}
		return err
	}
	b.state = BreakerClosed
	b.failures = 0
	return nil
}

// #endregion breaker

// #region wrappers
// breakerGenerator guards a Generator with a Breaker.
type breakerGenerator struct {
	inner   Generator
	breaker *Breaker
}

// WrapGenerator returns a Generator guarded by the breaker.
func WrapGenerator(g Generator, b *Breaker) Generator {
	return &breakerGenerator{inner: g, breaker: b}
}

func (g *breakerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.do(func() error {
		var err error
		out, err = g.inner.Generate(ctx, prompt)
		return err
	})
	return out, err
}

// breakerEmbedder guards an Embedder with a Breaker.
type breakerEmbedder struct {
	inner   Embedder
	breaker *Breaker
}

// WrapEmbedder returns an Embedder guarded by the breaker.
func WrapEmbedder(e Embedder, b *Breaker) Embedder {
	return &breakerEmbedder{inner: e, breaker: b}
}

func (e *breakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.breaker.do(func() error {
		var err error
		out, err = e.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// #endregion wrappers
