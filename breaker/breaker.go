// Package breaker implements a three-state circuit breaker (closed, open,
// half-open) guarding the L2 tier. Unlike a rolling-window breaker, state
// transitions are driven purely by a consecutive-failure count and a single
// probe admitted once the reset timeout elapses.
package breaker

import (
	"sync"
	"time"

	"github.com/dclobato/resilient-cache/cacheerrors"
	"github.com/dclobato/resilient-cache/logging"
)

// State is one of Closed, Open, or HalfOpen.
type State int

const (
	// Closed admits every call and counts consecutive failures.
	Closed State = iota
	// Open short-circuits every call until the reset timeout elapses.
	Open
	// HalfOpen admits exactly one probe call to decide whether to close.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config controls breaker thresholds. A disabled breaker always reports
// Closed and never short-circuits; it exists purely to keep consumers from
// branching on whether a breaker is present.
type Config struct {
	Name         string
	Enabled      bool
	Threshold    int
	ResetTimeout time.Duration
	Logger       logging.Logger
}

// Breaker tracks consecutive failures against a threshold and opens when it
// is reached, admitting a single half-open probe after ResetTimeout.
type Breaker struct {
	name         string
	enabled      bool
	threshold    int
	resetTimeout time.Duration
	logger       logging.Logger

	mu               sync.Mutex
	state            State
	consecutiveFails int
	openedAt         time.Time
	halfOpenInFlight bool
}

// New builds a Breaker from cfg. A zero Threshold or non-positive
// ResetTimeout with Enabled true is a configuration error the factory layer
// should reject before calling New; New itself does not validate, it trusts
// its caller.
func New(cfg Config) *Breaker {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Breaker{
		name:         cfg.Name,
		enabled:      cfg.Enabled,
		threshold:    cfg.Threshold,
		resetTimeout: cfg.ResetTimeout,
		logger:       logger,
		state:        Closed,
	}
}

// State returns the current state, lazily transitioning Open to HalfOpen if
// the reset timeout has elapsed.
func (b *Breaker) State() State {
	if !b.enabled {
		return Closed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeTransitionToHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.resetTimeout {
		b.state = HalfOpen
		b.halfOpenInFlight = false
		b.logger.Info("circuit breaker transitioning to half-open",
			logging.String("breaker", b.name))
	}
}

// Allow reports whether a call should proceed. In HalfOpen it admits exactly
// one probe: the first caller gets true and marks a probe in flight, every
// subsequent caller until the probe resolves gets false.
func (b *Breaker) Allow() bool {
	if !b.enabled {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	default: // Open
		return false
	}
}

// Execute runs fn if the breaker allows it, recording the outcome. It
// returns a *cacheerrors.BreakerOpenError without invoking fn when the
// breaker is short-circuiting.
func (b *Breaker) Execute(fn func() error) error {
	if !b.Allow() {
		b.mu.Lock()
		fails := b.consecutiveFails
		b.mu.Unlock()
		return &cacheerrors.BreakerOpenError{Name: b.name, ConsecutiveFails: fails}
	}

	err := fn()
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// RecordSuccess closes the breaker and resets the failure count. From
// HalfOpen, a successful probe always closes regardless of the configured
// threshold.
func (b *Breaker) RecordSuccess() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.state
	b.consecutiveFails = 0
	b.halfOpenInFlight = false
	b.state = Closed

	if prev != Closed {
		b.logger.Info("circuit breaker closed",
			logging.String("breaker", b.name), logging.String("previous_state", prev.String()))
	}
}

// RecordFailure increments the consecutive-failure count and opens the
// breaker once the threshold is reached. A failed probe from HalfOpen opens
// immediately, independent of threshold, per the single-probe contract.
func (b *Breaker) RecordFailure() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.openLocked()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.threshold {
		b.openLocked()
	}
}

func (b *Breaker) openLocked() {
	b.state = Open
	b.openedAt = time.Now()
	b.halfOpenInFlight = false
	b.logger.Warn("circuit breaker opened",
		logging.String("breaker", b.name), logging.Int("consecutive_failures", b.consecutiveFails))
}

// Reset forces the breaker back to Closed, clearing all counters. Intended
// for administrative use (e.g. a manual override endpoint), not normal
// operation.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.consecutiveFails = 0
	b.halfOpenInFlight = false
}

// Stats is a point-in-time snapshot of breaker state for GetStats().
type Stats struct {
	Name             string
	Enabled          bool
	State            string
	ConsecutiveFails int
	Threshold        int
	OpenedAt         *time.Time
}

// Stats returns a snapshot of the breaker's current state.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()

	s := Stats{
		Name:             b.name,
		Enabled:          b.enabled,
		State:            b.state.String(),
		ConsecutiveFails: b.consecutiveFails,
		Threshold:        b.threshold,
	}
	if !b.openedAt.IsZero() {
		t := b.openedAt
		s.OpenedAt = &t
	}
	return s
}
