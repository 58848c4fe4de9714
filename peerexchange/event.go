// Package peerexchange implements the Peer Exchange state machine: a
// per-connection translator between the BEP-3/BEP-6 wire protocol
// (implemented by peerwire) and a three-event abstraction — Available,
// Want, Fragment — that drives piece selection without any of the wire
// protocol's choke/interest bookkeeping leaking into the caller.
package peerexchange

import "github.com/uber/torrentcore/piecestore"

// EventKind identifies which of the three semantic events a Session
// produced or consumed.
type EventKind int

const (
	// EventAvailable reports pieces newly known to be servable: either the
	// peer can now serve them to us, or we can now serve them to the peer.
	EventAvailable EventKind = iota
	// EventWant reports a single block, either requested of us by the peer
	// (when awaited) or about to be requested of the peer by us (when
	// yielded).
	EventWant
	// EventFragment reports a single block of piece data, either received
	// from the peer (when awaited) or about to be sent to the peer (when
	// yielded).
	EventFragment
)

func (k EventKind) String() string {
	switch k {
	case EventAvailable:
		return "available"
	case EventWant:
		return "want"
	case EventFragment:
		return "fragment"
	default:
		return "unknown_event"
	}
}

// Event is the semantic, wire-agnostic unit exchanged between a Session and
// the piece-selection loop built on top of it. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind

	// EventAvailable.
	Pieces []int

	// EventWant.
	Block piecestore.BlockIx

	// EventFragment.
	Fragment piecestore.Block
}

func availableEvent(pieces []int) Event {
	return Event{Kind: EventAvailable, Pieces: pieces}
}

func wantEvent(b piecestore.BlockIx) Event {
	return Event{Kind: EventWant, Block: b}
}

func fragmentEvent(b piecestore.Block) Event {
	return Event{Kind: EventFragment, Fragment: b}
}
