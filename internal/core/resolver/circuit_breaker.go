package resolver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Service failing, requests rejected
	stateHalfOpen                     // One trial request allowed
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker tracks consecutive failures per service and stops calling a failing platform
// for a while. It never retries on its own.
type circuitBreaker struct {
	failures         map[ServiceName]int
	lastFailure      map[ServiceName]time.Time
	state            map[ServiceName]circuitState
	trial            map[ServiceName]bool
	now              func() time.Time
	failureThreshold int
	openDuration     time.Duration
	mu               sync.Mutex
}

func newCircuitBreaker(threshold int, openDuration time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openDuration <= 0 {
		openDuration = 5 * time.Minute
	}
	return &circuitBreaker{
		failures:         make(map[ServiceName]int),
		lastFailure:      make(map[ServiceName]time.Time),
		state:            make(map[ServiceName]circuitState),
		trial:            make(map[ServiceName]bool),
		now:              time.Now,
		failureThreshold: threshold,
		openDuration:     openDuration,
	}
}

// allow returns nil when the service may be called, or a ServiceAvailabilityError while open.
// A half-open circuit admits a single trial request until its outcome is recorded.
func (cb *circuitBreaker) allow(service ServiceName) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state[service] {
	case stateClosed:
		return nil
	case stateHalfOpen:
		if !cb.trial[service] {
			cb.trial[service] = true
			return nil
		}
		return NewAvailabilityError(service, http.StatusServiceUnavailable,
			"circuit half-open, trial request in flight")
	}

	lastFail := cb.lastFailure[service]
	if cb.now().Sub(lastFail) > cb.openDuration {
		cb.state[service] = stateHalfOpen
		cb.trial[service] = true
		slog.Info("[RESOLVE-CIRCUIT] circuit half-open, allowing trial request",
			"service", service,
		)
		return nil
	}

	return NewAvailabilityError(service, http.StatusServiceUnavailable,
		"circuit open after %d consecutive failures, next attempt after %s",
		cb.failures[service],
		lastFail.Add(cb.openDuration).Format(time.TimeOnly),
	)
}

// release ends a request whose outcome says nothing about the platform. A half-open
// circuit stays half-open and admits the next trial.
func (cb *circuitBreaker) release(service ServiceName) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.trial, service)
}

// recordSuccess resets the failure count and closes the circuit.
func (cb *circuitBreaker) recordSuccess(service ServiceName) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	old := cb.state[service]
	delete(cb.failures, service)
	delete(cb.lastFailure, service)
	delete(cb.trial, service)
	cb.state[service] = stateClosed

	if old != stateClosed {
		slog.Info("[RESOLVE-CIRCUIT] circuit closed, service recovered", "service", service)
	}
}

// recordFailure counts a failure and opens the circuit once the threshold is reached.
// A failed half-open trial reopens immediately.
func (cb *circuitBreaker) recordFailure(service ServiceName, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures[service]++
	cb.lastFailure[service] = cb.now()
	delete(cb.trial, service)
	count := cb.failures[service]
	old := cb.state[service]

	if count >= cb.failureThreshold || old == stateHalfOpen {
		cb.state[service] = stateOpen
		if old != stateOpen {
			slog.Warn("[RESOLVE-CIRCUIT] opening circuit",
				"service", service,
				"failures", count,
				"error", err,
			)
		}
		return
	}

	slog.Debug("[RESOLVE-CIRCUIT] failure recorded",
		"service", service,
		"failures", count,
		"threshold", cb.failureThreshold,
		"error", err,
	)
}

// snapshot returns the current state per service, for diagnostics.
func (cb *circuitBreaker) snapshot() map[ServiceName]string {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make(map[ServiceName]string, len(cb.state))
	for service, st := range cb.state {
		out[service] = st.String()
	}
	return out
}
