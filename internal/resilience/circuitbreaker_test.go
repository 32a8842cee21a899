package resilience

import (
	"testing"
	"time"

	"kis-gateway/internal/errors"
)

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("openapi", CircuitBreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second}).
		WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail, nil); err != errBoom {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, errors.ErrCircuitOpen) || called {
		t.Fatalf("open circuit ran fn or returned %v", err)
	}

	now = now.Add(30 * time.Second)
	if err := cb.Execute(ok, nil); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state after probe = %s, want CLOSED", cb.State())
	}

	stats := cb.Stats()
	if stats.Requests != 5 || stats.Failures != 3 || stats.Rejected != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Host != "openapi" || stats.LastError != "boom" || !stats.OpenedAt.IsZero() {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("vts", CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}).
		WithClock(func() time.Time { return now })

	_ = cb.Execute(fail, nil)
	now = now.Add(time.Minute)
	_ = cb.Execute(fail, nil)
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s, want OPEN", cb.State())
	}
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	cb := NewCircuitBreaker("h", CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	notCounted := func(error) bool { return false }

	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail, notCounted)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreaker_ZeroThresholdDisables(t *testing.T) {
	cb := NewCircuitBreaker("h", CircuitBreakerConfig{})
	for i := 0; i < 10; i++ {
		_ = cb.Execute(fail, nil)
	}
	if err := cb.Execute(ok, nil); err != nil {
		t.Errorf("disabled breaker rejected a call: %v", err)
	}
}

func TestRegistry_OneBreakerPerHost(t *testing.T) {
	r := NewRegistry(DefaultCircuitBreakerConfig())
	a := r.Get("openapi.koreainvestment.com:9443")
	if r.Get("openapi.koreainvestment.com:9443") != a {
		t.Error("Get returned a different breaker for the same host")
	}
	if r.Get("openapivts.koreainvestment.com:29443") == a {
		t.Error("hosts share a breaker")
	}
	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() = %d breakers, want 2", len(all))
	}
	if all[0].Host != "openapi.koreainvestment.com:9443" || all[1].State != CircuitClosed {
		t.Errorf("All() = %+v", all)
	}
}
