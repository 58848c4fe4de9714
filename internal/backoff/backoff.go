// Package backoff implements a general-purpose exponential retry helper used
// by callers that want a bounded number of increasingly-spaced, jittered
// attempts within a total time budget.
//
// It is intentionally not used for the UDP tracker's BEP-15 retransmission
// loop: that protocol bounds the *per-attempt* timeout against a ceiling
// (max_timeout), not the *cumulative* elapsed time against a budget, and
// must hit exact clock values under test. See the Manager's roundTrip
// instead; AnnounceWithRetry layers this package's whole-attempt retry on
// top of it.
package backoff

import (
	"errors"
	"math/rand"
	"time"

	"github.com/andres-erbsen/clock"
)

// ErrRetryTimeout is returned by Attempts.Err after WaitForNext returns false
// because the retry budget was exhausted.
var ErrRetryTimeout = errors.New("backoff: retry timeout exceeded")

// Config configures a Backoff.
type Config struct {
	Min          time.Duration
	Max          time.Duration
	Factor       float64
	NoJitter     bool
	RetryTimeout time.Duration
}

func (c Config) applyDefaults() Config {
	if c.Min == 0 {
		c.Min = time.Second
	}
	if c.Factor == 0 {
		c.Factor = 2
	}
	if c.Max == 0 {
		c.Max = c.Min
	}
	return c
}

// Backoff generates Attempts iterators sharing a common configuration.
type Backoff struct {
	config Config
	clk    clock.Clock
}

// New creates a Backoff with the given config, using the system clock.
func New(config Config) *Backoff {
	return NewWithClock(config, clock.New())
}

// NewWithClock creates a Backoff using the given clock, for deterministic
// tests.
func NewWithClock(config Config, clk clock.Clock) *Backoff {
	return &Backoff{config: config.applyDefaults(), clk: clk}
}

// Attempts starts a new bounded retry sequence.
func (b *Backoff) Attempts() *Attempts {
	return &Attempts{b: b, start: b.clk.Now(), first: true}
}

// Attempts iterates a single bounded retry sequence: the first attempt is
// immediate, and each subsequent attempt is delayed by Min * Factor^n,
// capped at Max, as long as the cumulative elapsed time (including the next
// delay) stays within RetryTimeout.
type Attempts struct {
	b         *Backoff
	start     time.Time
	elapsed   time.Duration
	nextDelay time.Duration
	first     bool
	err       error
}

// WaitForNext blocks for the next attempt's delay and returns true, or
// returns false once the retry budget is exhausted (Err then reports why).
func (a *Attempts) WaitForNext() bool {
	cfg := a.b.config
	if !a.first && a.elapsed+a.nextDelay > cfg.RetryTimeout {
		a.err = ErrRetryTimeout
		return false
	}

	if !a.first {
		a.b.clk.Sleep(a.jitter(a.nextDelay))
	}
	a.elapsed += a.nextDelay

	if a.first {
		a.nextDelay = cfg.Min
		a.first = false
	} else {
		next := time.Duration(float64(a.nextDelay) * cfg.Factor)
		if next > cfg.Max {
			next = cfg.Max
		}
		a.nextDelay = next
	}
	return true
}

// Err returns the reason WaitForNext returned false, or nil if it has not
// yet returned false.
func (a *Attempts) Err() error {
	return a.err
}

// jitter randomizes delay within [delay/2, delay) unless NoJitter is set,
// so that many callers backing off against the same remote don't retry in
// lockstep. The un-jittered delay still drives elapsed/RetryTimeout
// accounting so jitter cannot extend the overall retry budget.
func (a *Attempts) jitter(delay time.Duration) time.Duration {
	if a.b.config.NoJitter || delay == 0 {
		return delay
	}
	return delay/2 + time.Duration(rand.Int63n(int64(delay)/2+1))
}
