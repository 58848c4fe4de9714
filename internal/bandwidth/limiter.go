// Package bandwidth provides per-connection egress/ingress rate limiting for
// the Peer Exchange component, backed by golang.org/x/time/rate.
package bandwidth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	EgressBitsPerSec  uint64
	IngressBitsPerSec uint64
	// TokenSize is the number of bits one rate-limiter token represents.
	// Larger values permit larger bursts.
	TokenSize uint64
	Enable    bool
}

// Limiter rate-limits egress and ingress byte transfer for a single
// connection. When disabled, every Reserve call is a no-op.
type Limiter struct {
	config  Config
	egress  *rate.Limiter
	ingress *rate.Limiter
}

// NewLimiter constructs a Limiter. If Enable is false, the returned Limiter
// performs no limiting (egress/ingress are left nil).
func NewLimiter(config Config) (*Limiter, error) {
	if config.Enable {
		if config.EgressBitsPerSec == 0 {
			return nil, errors.New("bandwidth: EgressBitsPerSec must be > 0")
		}
		if config.IngressBitsPerSec == 0 {
			return nil, errors.New("bandwidth: IngressBitsPerSec must be > 0")
		}
	}
	if config.TokenSize == 0 {
		config.TokenSize = 1
	}

	l := &Limiter{config: config}
	if !config.Enable {
		return l, nil
	}

	l.egress = newTokenBucket(config.EgressBitsPerSec, config.TokenSize)
	l.ingress = newTokenBucket(config.IngressBitsPerSec, config.TokenSize)
	return l, nil
}

func newTokenBucket(bitsPerSec, tokenSize uint64) *rate.Limiter {
	tokensPerSec := float64(bitsPerSec) / float64(tokenSize)
	burst := int(tokensPerSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(tokensPerSec), burst)
}

func tokensFor(nbytes int64, tokenSize uint64) int {
	bits := nbytes * 8
	n := int(uint64(bits) / tokenSize)
	if n < 1 {
		n = 1
	}
	return n
}

// ReserveEgress blocks until nbytes worth of egress bandwidth is available.
func (l *Limiter) ReserveEgress(nbytes int64) error {
	return reserve(l.egress, nbytes, l.config.TokenSize)
}

// ReserveIngress blocks until nbytes worth of ingress bandwidth is available.
func (l *Limiter) ReserveIngress(nbytes int64) error {
	return reserve(l.ingress, nbytes, l.config.TokenSize)
}

func reserve(lim *rate.Limiter, nbytes int64, tokenSize uint64) error {
	if lim == nil {
		return nil
	}
	n := tokensFor(nbytes, tokenSize)
	if n > lim.Burst() {
		return fmt.Errorf("bandwidth: %d bytes exceeds bucket capacity", nbytes)
	}
	return lim.WaitN(context.Background(), n)
}

// Adjust divides the configured egress/ingress rates by denom, used to
// reapportion bandwidth across a changing number of concurrent connections.
func (l *Limiter) Adjust(denom int) error {
	if denom <= 0 {
		return fmt.Errorf("bandwidth: denom must be > 0, got %d", denom)
	}
	if l.egress == nil {
		return nil
	}
	l.egress.SetLimit(rate.Limit(adjustedRate(l.config.EgressBitsPerSec, l.config.TokenSize, denom)))
	l.ingress.SetLimit(rate.Limit(adjustedRate(l.config.IngressBitsPerSec, l.config.TokenSize, denom)))
	return nil
}

// adjustedRate computes the per-connection token rate after dividing by
// denom, clamped to a minimum of 1 token/sec so a growing number of
// connections never rounds a still-enabled limiter down to zero throughput,
// mirroring newTokenBucket's own burst clamp.
func adjustedRate(bitsPerSec, tokenSize uint64, denom int) float64 {
	rate := float64(bitsPerSec) / float64(tokenSize) / float64(denom)
	if rate < 1 {
		rate = 1
	}
	return rate
}

// EgressLimit returns the current egress rate in tokens/sec.
func (l *Limiter) EgressLimit() int64 {
	if l.egress == nil {
		return 0
	}
	return int64(l.egress.Limit())
}

// IngressLimit returns the current ingress rate in tokens/sec.
func (l *Limiter) IngressLimit() int64 {
	if l.ingress == nil {
		return 0
	}
	return int64(l.ingress.Limit())
}
