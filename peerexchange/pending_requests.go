package peerexchange

import (
	"time"

	"github.com/andres-erbsen/clock"
	"golang.org/x/sync/syncmap"

	"github.com/uber/torrentcore/piecestore"
)

// pendingRequests tracks blocks we have requested from a peer and are still
// waiting on, bounding how many may be in flight at once and surfacing ones
// that have sat unanswered past timeout so they can be resent. Safe for
// concurrent use.
type pendingRequests struct {
	clk     clock.Clock
	timeout time.Duration
	limit   int
	m       syncmap.Map // piecestore.BlockIx -> time.Time (sent at)
}

func newPendingRequests(clk clock.Clock, timeout time.Duration, limit int) *pendingRequests {
	return &pendingRequests{clk: clk, timeout: timeout, limit: limit}
}

// TryAdd records b as in-flight and returns true, unless the pipeline limit
// has already been reached, in which case it returns false and the caller
// should hold off sending the request.
func (p *pendingRequests) TryAdd(b piecestore.BlockIx) bool {
	if p.count() >= p.limit {
		return false
	}
	p.m.Store(b, p.clk.Now())
	return true
}

// Remove clears b, called once its Piece has arrived.
func (p *pendingRequests) Remove(b piecestore.BlockIx) {
	p.m.Delete(b)
}

func (p *pendingRequests) count() int {
	n := 0
	p.m.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Expired returns every in-flight block whose timeout has elapsed and
// refreshes their sent-at time, so a caller resending them does not
// immediately see them as expired again next tick.
func (p *pendingRequests) Expired() []piecestore.BlockIx {
	var out []piecestore.BlockIx
	now := p.clk.Now()
	p.m.Range(func(k, v interface{}) bool {
		if now.Sub(v.(time.Time)) >= p.timeout {
			out = append(out, k.(piecestore.BlockIx))
		}
		return true
	})
	for _, b := range out {
		p.m.Store(b, now)
	}
	return out
}
