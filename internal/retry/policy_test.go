package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.Initial != time.Second {
		t.Fatalf("expected initial 1s got %v", p.Initial)
	}
	if p.Max != 30*time.Second {
		t.Fatalf("expected max 30s got %v", p.Max)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
}

// TestFromConfigOverrides checks override precedence and clamping when initial > max.
func TestFromConfigOverrides(t *testing.T) {
	p := FromConfig(config.RetryConfig{
		Backoff:    config.RetryBackoffFixed,
		Initial:    5 * time.Second,
		Max:        2 * time.Second,
		MaxRetries: 5,
	})
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Max != 2*time.Second {
		t.Fatalf("expected max 2s got %v", p.Max)
	}
	if p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected fixed mode got %s", p.Mode)
	}
	if p.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 got %d", p.MaxRetries)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, MaxRetries: 3})
	for i := 1; i <= 3; i++ {
		if d := fixed.Delay(i); d != 100*time.Millisecond {
			t.Fatalf("fixed attempt %d expected 100ms got %v", i, d)
		}
	}

	linear := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 250 * time.Millisecond, MaxRetries: 5})
	cases := []struct {
		attempt int
		want    time.Duration
	}{{1, 100 * time.Millisecond}, {2, 200 * time.Millisecond}, {3, 250 * time.Millisecond}, {4, 250 * time.Millisecond}}
	for _, c := range cases {
		if got := linear.Delay(c.attempt); got != c.want {
			t.Fatalf("linear attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}

	exp := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffExponential, Initial: 50 * time.Millisecond, Max: 160 * time.Millisecond, MaxRetries: 5})
	expCases := []struct {
		attempt int
		want    time.Duration
	}{{1, 50 * time.Millisecond}, {2, 100 * time.Millisecond}, {3, 160 * time.Millisecond}, {4, 160 * time.Millisecond}}
	for _, c := range expCases {
		if got := exp.Delay(c.attempt); got != c.want {
			t.Fatalf("exp attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}
}

// TestDelayEdgeCases ensures non-positive attempts yield zero.
func TestDelayEdgeCases(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffLinear, Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond, MaxRetries: 1})
	if d := p.Delay(0); d != 0 {
		t.Fatalf("attempt 0 expected 0 got %v", d)
	}
	if d := p.Delay(-1); d != 0 {
		t.Fatalf("attempt -1 expected 0 got %v", d)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	calls := 0
	err := Do(context.Background(), p, func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls got %d", calls)
	}
}

func TestDoStopsOnFatal(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	calls := 0
	fatal := errors.New("fatal")
	err := Do(context.Background(), p, func(error) bool { return false }, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call got %d", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	calls := 0
	err := Do(context.Background(), p, func(error) bool { return true }, func() error {
		calls++
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 { // first attempt + 2 retries
		t.Fatalf("expected 3 calls got %d", calls)
	}
}
