package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyGenerator struct {
	calls int
	fail  bool
}

func (g *flakyGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.fail {
		return "", errors.New("upstream down")
	}
	return "ok", nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGenerator{fail: true}
	b := NewBreaker(3, time.Minute)
	g := WrapGenerator(inner, b)

	for i := 0; i < 3; i++ {
		if _, err := g.Generate(context.Background(), "q"); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open state, got %s", b.State())
	}

	// Calls are rejected without reaching the upstream.
	before := inner.calls
	_, err := g.Generate(context.Background(), "q")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != before {
		t.Fatal("open breaker must not invoke the upstream")
	}
}

func TestBreakerHalfOpenTrialCloses(t *testing.T) {
	inner := &flakyGenerator{fail: true}
	b := NewBreaker(1, 10*time.Millisecond)
	g := WrapGenerator(inner, b)

	if _, err := g.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected upstream error")
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", b.State())
	}

	inner.fail = false
	out, err := g.Generate(context.Background(), "q")
	if err != nil || out != "ok" {
		t.Fatalf("expected trial success, got %q %v", out, err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed after trial success, got %s", b.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	inner := &flakyGenerator{}
	b := NewBreaker(2, time.Minute)
	g := WrapGenerator(inner, b)

	inner.fail = true
	if _, err := g.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected failure")
	}
	inner.fail = false
	if _, err := g.Generate(context.Background(), "q"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	inner.fail = true
	if _, err := g.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected failure")
	}
	// One failure after a success must not trip a threshold of two.
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}
