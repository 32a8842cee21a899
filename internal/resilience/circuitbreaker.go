// Package resilience provides the circuit breakers guarding venue hosts.
package resilience

import (
	"sort"
	"sync"
	"time"

	"kis-gateway/internal/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN" // one probe call allowed
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	// Zero disables the breaker.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig opens after five straight transport failures
// and probes again after thirty seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker stops calls to one venue host after repeated transport
// failures. Venue business rejections are successful round trips and are
// excluded by the caller's failure predicate.
type CircuitBreaker struct {
	host   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    CircuitState
	streak   int // consecutive failures while closed, successes while half-open
	openedAt time.Time
	stats    CircuitBreakerStats
}

// CircuitBreakerStats counts what a breaker has seen.
type CircuitBreakerStats struct {
	Host      string       `json:"host"`
	State     CircuitState `json:"state"`
	Requests  int64        `json:"requests"`
	Failures  int64        `json:"failures"`
	Rejected  int64        `json:"rejected"`
	OpenedAt  time.Time    `json:"opened_at,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// NewCircuitBreaker creates a closed breaker for host.
func NewCircuitBreaker(host string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{host: host, config: config, now: time.Now, state: CircuitClosed}
}

// WithClock overrides the breaker's clock.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

// Execute runs fn unless the circuit is open. Errors for which failure
// returns false do not count against the host.
func (cb *CircuitBreaker) Execute(fn func() error, failure func(error) bool) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.settle(err != nil && (failure == nil || failure(err)), err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.Requests++
	if cb.config.FailureThreshold <= 0 || cb.state != CircuitOpen {
		return nil
	}
	if cb.now().Sub(cb.openedAt) >= cb.config.Cooldown {
		cb.moveTo(CircuitHalfOpen)
		return nil
	}
	cb.stats.Rejected++
	return errors.Wrapf(errors.ErrCircuitOpen, "host %s", cb.host)
}

func (cb *CircuitBreaker) settle(failed bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		switch cb.state {
		case CircuitHalfOpen:
			cb.streak++
			if cb.streak >= cb.config.SuccessThreshold {
				cb.moveTo(CircuitClosed)
			}
		case CircuitClosed:
			cb.streak = 0
		}
		return
	}

	cb.stats.Failures++
	cb.stats.LastError = err.Error()
	switch cb.state {
	case CircuitHalfOpen:
		cb.moveTo(CircuitOpen)
	case CircuitClosed:
		cb.streak++
		if cb.config.FailureThreshold > 0 && cb.streak >= cb.config.FailureThreshold {
			cb.moveTo(CircuitOpen)
		}
	}
}

func (cb *CircuitBreaker) moveTo(state CircuitState) {
	cb.state = state
	cb.streak = 0
	if state == CircuitOpen {
		cb.openedAt = cb.now()
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a copy of the breaker's counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := cb.stats
	s.Host = cb.host
	s.State = cb.state
	if cb.state != CircuitClosed {
		s.OpenedAt = cb.openedAt
	}
	return s
}

// Registry hands out one breaker per host.
type Registry struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers share config.
func NewRegistry(config CircuitBreakerConfig) *Registry {
	return &Registry{config: config, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for host, creating it on first use.
func (r *Registry) Get(host string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(host, r.config)
		r.breakers[host] = cb
	}
	return cb
}

// All returns stats for every breaker created so far, ordered by host.
func (r *Registry) All() []CircuitBreakerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CircuitBreakerStats, 0, len(r.breakers))
	for _, cb := range r.breakers {
		out = append(out, cb.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}
