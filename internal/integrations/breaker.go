package integrations

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerConfig struct {
	MaxFailures      int           `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
}

func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker stops calling an upstream after MaxFailures consecutive
// errors. After Timeout it lets trial calls through; HalfOpenMaxCalls
// successes close it again and any failure reopens it.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	inFlight        int
	lastFailureTime time.Time

	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int
	clock            clockwork.Clock
}

func NewCircuitBreaker(config *BreakerConfig, clock clockwork.Clock) *CircuitBreaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &CircuitBreaker{
		state:            BreakerClosed,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		clock:            clock,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrBreakerOpen
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if cb.clock.Since(cb.lastFailureTime) < cb.timeout {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.successCount = 0
		cb.inFlight = 0
		fallthrough
	case BreakerHalfOpen:
		if cb.successCount+cb.inFlight >= cb.halfOpenMaxCalls {
			return false
		}
		cb.inFlight++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}

	if err != nil {
		cb.failureCount++
		cb.lastFailureTime = cb.clock.Now()

		switch cb.state {
		case BreakerClosed:
			if cb.failureCount >= cb.maxFailures {
				cb.state = BreakerOpen
			}
		case BreakerHalfOpen:
			cb.state = BreakerOpen
			cb.successCount = 0
		}
		return
	}

	switch cb.state {
	case BreakerClosed:
		cb.failureCount = 0
	case BreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenMaxCalls {
			cb.state = BreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failureCount,
		"success_count":   cb.successCount,
		"last_failure":    cb.lastFailureTime.Unix(),
		"max_failures":    cb.maxFailures,
		"timeout_seconds": cb.timeout.Seconds(),
	}
}
