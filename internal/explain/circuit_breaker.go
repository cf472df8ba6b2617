package explain

import (
	"sync"
	"time"
)

// breakerPhase is the circuit breaker's current disposition toward new calls.
type breakerPhase int

const (
	phaseClosed breakerPhase = iota
	phaseOpen
	phaseProbing
)

func (p breakerPhase) String() string {
	switch p {
	case phaseOpen:
		return "open"
	case phaseProbing:
		return "probing"
	default:
		return "closed"
	}
}

// circuitBreakerConfig tunes when the breaker trips and how long it waits
// before letting a probe call through again.
type circuitBreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenMax      int
}

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      1,
	}
}

const maxBreakerCooldown = 5 * time.Minute

// circuitBreaker gates calls to the explainer's model backend, tripping
// after repeated failures and reopening on a backoff that doubles with each
// consecutive trip, capped at maxBreakerCooldown. Grounded on the teacher's
// ai.CircuitBreaker closed/open/half-open pattern, restructured around an
// explicit cooldown deadline and an in-flight probe count rather than
// recomputing the backoff from a last-failure timestamp on every check.
type circuitBreaker struct {
	mu sync.Mutex

	cfg   circuitBreakerConfig
	phase breakerPhase

	consecutiveFailures int
	tripCount           int // consecutive trips, drives the backoff exponent
	cooldownUntil       time.Time
	probesInFlight      int
}

func newCircuitBreaker(cfg circuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{cfg: cfg, phase: phaseClosed}
}

func (cb *circuitBreaker) cooldown() time.Duration {
	d := cb.cfg.ResetTimeout * time.Duration(1<<uint(cb.tripCount))
	if d > maxBreakerCooldown || d <= 0 {
		return maxBreakerCooldown
	}
	return d
}

func (cb *circuitBreaker) trip() {
	cb.phase = phaseOpen
	cb.tripCount++
	cb.cooldownUntil = time.Now().Add(cb.cooldown())
	cb.probesInFlight = 0
}

// allow reports whether a call should be attempted right now.
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.phase == phaseOpen && !time.Now().Before(cb.cooldownUntil) {
		cb.phase = phaseProbing
		cb.probesInFlight = 0
	}

	switch cb.phase {
	case phaseClosed:
		return true
	case phaseProbing:
		if cb.probesInFlight >= cb.cfg.HalfOpenMax {
			return false
		}
		cb.probesInFlight++
		return true
	default: // phaseOpen
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.tripCount = 0
	cb.phase = phaseClosed
	cb.probesInFlight = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++

	if cb.phase == phaseProbing {
		cb.trip()
		return
	}
	if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
		cb.trip()
	}
}
