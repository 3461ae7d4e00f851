// Package backoff implements the agent's reconnect delay law: exponential
// backoff that resets after a sufficiently long gap since the last failure.
package backoff

import (
	"math"
	"time"
)

const (
	// defaultBase is the first failure's delay (2^0 * defaultBase).
	defaultBase = 1 * time.Second
	// defaultMax caps the delay at 512s (2^9 * defaultBase) under
	// persistent failure.
	defaultMax = 512 * time.Second
	// defaultResetWindow: a failure more than this long after the previous
	// one resets the errors counter to zero (spec.md §4.10).
	defaultResetWindow = 30 * time.Second
	// maxExponent bounds the 2^errors computation so a very long run of
	// closely-spaced failures can't overflow time.Duration before the Max
	// cap is applied.
	maxExponent = 32
)

// Backoff tracks consecutive-failure state for one agent's dial loop. The
// zero value is ready to use and matches spec.md §4.10 exactly (1s base,
// 512s cap, 30s reset window); Base/Max/ResetWindow let a caller override
// those constants (wired from config.ReconnectTuning) without touching the
// spec defaults for everyone else.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	ResetWindow time.Duration

	errors      int
	lastFailure time.Time
	hasFailure  bool
}

// Failure records a failed dial/session at now and returns the delay to
// sleep before the next attempt. If the previous failure was within the
// reset window of now, errors increments; otherwise it resets to zero,
// matching "2^min(errors,9)" with the first failure giving a 1s delay.
func (b *Backoff) Failure(now time.Time) time.Duration {
	if b.hasFailure && now.Sub(b.lastFailure) < b.resetWindow() {
		b.errors++
	} else {
		b.errors = 0
	}
	b.lastFailure = now
	b.hasFailure = true

	exp := b.errors
	if exp > maxExponent {
		exp = maxExponent
	}
	delay := b.base() * time.Duration(math.Pow(2, float64(exp)))
	if max := b.max(); delay > max {
		delay = max
	}
	return delay
}

func (b *Backoff) base() time.Duration {
	if b.Base > 0 {
		return b.Base
	}
	return defaultBase
}

func (b *Backoff) max() time.Duration {
	if b.Max > 0 {
		return b.Max
	}
	return defaultMax
}

func (b *Backoff) resetWindow() time.Duration {
	if b.ResetWindow > 0 {
		return b.ResetWindow
	}
	return defaultResetWindow
}

// Reset clears all failure history, as if no prior dial had ever failed.
func (b *Backoff) Reset() {
	b.errors = 0
	b.hasFailure = false
}
