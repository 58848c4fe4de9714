package peerexchange

import (
	"fmt"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/peerwire"
	"github.com/uber/torrentcore/piecestore"
)

// Session holds the choke/interest/bitfield state of one peer connection and
// translates between peerwire.Message and Event. It is NOT thread-safe;
// callers (in practice, a single per-connection Loop) must serialize access.
type Session struct {
	// PeerID identifies the remote end of the connection.
	PeerID core.PeerID

	fastEnabled bool

	clientBF *piecestore.Bitfield // shared with the owning Piece Store
	peerBF   *piecestore.Bitfield

	ourChoke       bool // we are choking the peer: uploads disabled
	ourInterested  bool // we are interested in the peer
	peerChoking    bool // the peer is choking us: downloads disabled
	peerInterested bool // the peer is interested in us

	out []peerwire.Message
}

// NewSession constructs a Session for a newly handshaken connection. store
// supplies the shared client bitfield, so a piece verified via any
// connection is immediately reflected here. Both choke directions start
// choked, per convention.
func NewSession(peerID core.PeerID, store *piecestore.Store, fastEnabled bool) *Session {
	return &Session{
		PeerID:      peerID,
		fastEnabled: fastEnabled,
		clientBF:    store.ClientBitfield(),
		peerBF:      piecestore.NewBitfield(store.NumPieces()),
		ourChoke:    true,
		peerChoking: true,
	}
}

func (s *Session) canUpload() bool   { return !s.ourChoke }
func (s *Session) canDownload() bool { return !s.peerChoking }

// peerWant is the set of pieces we hold that the peer does not: what we
// could serve them.
func (s *Session) peerWant() []int { return s.clientBF.Difference(s.peerBF) }

// clientWant is the set of pieces the peer holds that we do not: what we
// could download from them.
func (s *Session) clientWant() []int { return s.peerBF.Difference(s.clientBF) }

func (s *Session) clientOffer() []int {
	if !s.canUpload() {
		return nil
	}
	return s.peerWant()
}

func (s *Session) peerOffer() []int {
	if !s.canDownload() {
		return nil
	}
	return s.clientWant()
}

func (s *Session) reviseInterest() {
	want := len(s.clientWant()) > 0
	if want == s.ourInterested {
		return
	}
	s.ourInterested = want
	if want {
		s.queue(peerwire.NewInterested())
	} else {
		s.queue(peerwire.NewNotInterested())
	}
}

func (s *Session) queue(m peerwire.Message) {
	s.out = append(s.out, m)
}

// Outgoing drains and returns every wire message buffered as a side effect
// of the most recent Handle, Yield, SetOurChoke, or AnnounceHave call.
func (s *Session) Outgoing() []peerwire.Message {
	out := s.out
	s.out = nil
	return out
}

func (s *Session) requireFast() error {
	if !s.fastEnabled {
		return ProtocolError{Reason: "Fast not enabled"}
	}
	return nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Handle implements the await_event contract: it folds one incoming
// peerwire.Message into the session's state and, where the dispatch table
// calls for it, returns the semantic event it produced.
func (s *Session) Handle(m peerwire.Message) (Event, bool, error) {
	switch m.Type {
	case peerwire.KeepAlive:
		return Event{}, false, nil

	case peerwire.Choke:
		s.peerChoking = true
		return Event{}, false, nil

	case peerwire.Unchoke:
		s.peerChoking = false
		if offer := s.peerOffer(); len(offer) > 0 {
			return availableEvent(offer), true, nil
		}
		return Event{}, false, nil

	case peerwire.Interested:
		s.peerInterested = true
		return Event{}, false, nil

	case peerwire.NotInterested:
		s.peerInterested = false
		return Event{}, false, nil

	case peerwire.Have:
		s.peerBF.Add(int(m.Index))
		s.reviseInterest()
		if offer := s.peerOffer(); len(offer) > 0 {
			return availableEvent(offer), true, nil
		}
		return Event{}, false, nil

	case peerwire.Bitfield:
		s.peerBF.ReplaceFrom(m.Bits)
		s.reviseInterest()
		if offer := s.peerOffer(); len(offer) > 0 {
			return availableEvent(offer), true, nil
		}
		return Event{}, false, nil

	case peerwire.Request:
		bix := piecestore.BlockIx{
			PieceIndex: int(m.Block.PieceIndex),
			Offset:     int64(m.Block.Begin),
			Length:     int64(m.Block.Length),
		}
		if containsInt(s.clientOffer(), bix.PieceIndex) {
			return wantEvent(bix), true, nil
		}
		return Event{}, false, nil

	case peerwire.Piece:
		blk := piecestore.Block{
			PieceIndex: int(m.PieceIndex),
			Offset:     int64(m.Begin),
			Data:       m.Data,
		}
		if containsInt(s.clientWant(), blk.PieceIndex) {
			return fragmentEvent(blk), true, nil
		}
		return Event{}, false, nil

	case peerwire.HaveAll:
		if err := s.requireFast(); err != nil {
			return Event{}, false, err
		}
		s.peerBF.SetAll()
		s.reviseInterest()
		return Event{}, false, nil

	case peerwire.HaveNone:
		if err := s.requireFast(); err != nil {
			return Event{}, false, err
		}
		s.peerBF.Clear()
		s.reviseInterest()
		return Event{}, false, nil

	case peerwire.SuggestPiece:
		if err := s.requireFast(); err != nil {
			return Event{}, false, err
		}
		i := int(m.Index)
		if !s.peerBF.Has(i) {
			return availableEvent([]int{i}), true, nil
		}
		return Event{}, false, nil

	case peerwire.RejectRequest, peerwire.AllowedFast:
		if err := s.requireFast(); err != nil {
			return Event{}, false, err
		}
		return Event{}, false, nil

	case peerwire.Cancel, peerwire.Port:
		// Recognized but not acted upon.
		return Event{}, false, nil

	default:
		return Event{}, false, ProtocolError{Reason: fmt.Sprintf("unrecognized message type %s", m.Type)}
	}
}

// Yield implements the yield_event contract for the two event kinds that
// produce wire traffic. EventAvailable carries no wire message of its own;
// callers notify the availability bus directly.
func (s *Session) Yield(ev Event) {
	switch ev.Kind {
	case EventWant:
		if containsInt(s.peerOffer(), ev.Block.PieceIndex) {
			s.queue(peerwire.NewRequest(peerwire.BlockIndex{
				PieceIndex: uint32(ev.Block.PieceIndex),
				Begin:      uint32(ev.Block.Offset),
				Length:     uint32(ev.Block.Length),
			}))
		}
	case EventFragment:
		if containsInt(s.clientOffer(), ev.Fragment.PieceIndex) {
			s.queue(peerwire.NewPiece(
				uint32(ev.Fragment.PieceIndex), uint32(ev.Fragment.Offset), ev.Fragment.Data))
		}
	}
}

// LocalBitfield returns the wire Bitfield message for our current client
// bitfield, sent once at the start of the default event loop.
func (s *Session) LocalBitfield() peerwire.Message {
	return peerwire.NewBitfield(s.clientBF.Marshal())
}

// AnnounceHave queues a Have message for a piece we just finished verifying.
func (s *Session) AnnounceHave(piece int) {
	s.queue(peerwire.NewHave(uint32(piece)))
}

// SetOurChoke updates whether we are choking the peer, queuing the
// corresponding Choke/Unchoke message on change. Choking policy itself
// (who to choke, when) is a scheduling decision made above this package.
func (s *Session) SetOurChoke(choke bool) {
	if s.ourChoke == choke {
		return
	}
	s.ourChoke = choke
	if choke {
		s.queue(peerwire.NewChoke())
	} else {
		s.queue(peerwire.NewUnchoke())
	}
}

// PeerInterested reports whether the peer has told us it is interested.
func (s *Session) PeerInterested() bool { return s.peerInterested }

// OurInterested reports whether we have told the peer we are interested.
func (s *Session) OurInterested() bool { return s.ourInterested }

// FastEnabled reports whether the Fast extension was negotiated for this
// connection.
func (s *Session) FastEnabled() bool { return s.fastEnabled }
