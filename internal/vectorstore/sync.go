package vectorstore

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	circuitClosed   uint32 = 0
	circuitOpen     uint32 = 1
	circuitHalfOpen uint32 = 2
)

// CircuitBreaker protects against hammering an unreachable vector store,
// implementing the degrade path taken when the vector store is down.
type CircuitBreaker struct {
	failures    atomic.Int32
	threshold   int32
	resetAfter  time.Duration
	state       atomic.Uint32
	lastFailure atomic.Int64
}

// NewCircuitBreaker creates a circuit breaker that opens after threshold
// consecutive failures and attempts a half-open probe after resetAfter.
func NewCircuitBreaker(threshold int32, resetAfter time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, resetAfter: resetAfter}
}

// Allow reports whether an operation may proceed.
func (cb *CircuitBreaker) Allow() bool {
	for {
		switch cb.state.Load() {
		case circuitOpen:
			lastFail := time.Unix(0, cb.lastFailure.Load())
			if time.Since(lastFail) > cb.resetAfter {
				if cb.state.CompareAndSwap(circuitOpen, circuitHalfOpen) {
					return true
				}
				continue
			}
			return false
		case circuitHalfOpen:
			return false
		default:
			return true
		}
	}
}

// RecordSuccess resets the breaker to closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(circuitClosed)
}

// RecordFailure increments the failure count and opens the breaker once
// threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	for {
		current := cb.failures.Load()
		if current == math.MaxInt32 {
			return
		}
		next := current + 1
		if !cb.failures.CompareAndSwap(current, next) {
			continue
		}
		if next >= cb.threshold {
			if cb.state.CompareAndSwap(circuitClosed, circuitOpen) ||
				cb.state.CompareAndSwap(circuitHalfOpen, circuitOpen) {
				cb.lastFailure.Store(time.Now().UnixNano())
			}
		}
		return
	}
}

// State returns the breaker's current state: "closed", "open", or
// "half-open".
func (cb *CircuitBreaker) State() string {
	switch cb.state.Load() {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
