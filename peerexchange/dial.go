package peerexchange

import (
	"net"

	"go.uber.org/zap"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/peerwire"
	"github.com/uber/torrentcore/piecestore"
)

// Dial opens a TCP connection to addr, completes the outbound handshake
// exchange for infoHash, and returns a Loop ready to Run. The connection is
// rejected (and closed) if the remote's handshake InfoHash does not match
// infoHash. bus and logger may be nil, per NewLoop.
func Dial(
	addr string,
	infoHash core.InfoHash,
	localPeerID core.PeerID,
	config Config,
	store *piecestore.Store,
	bus core.AvailabilityBus,
	logger *zap.SugaredLogger,
) (*Loop, error) {
	config = config.applyDefaults()

	conn, err := net.DialTimeout("tcp", addr, config.HandshakeTimeout)
	if err != nil {
		return nil, err
	}
	peer, err := peerwire.CompleteOutbound(conn, infoHash, localPeerID, config.Fast, config.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return newLoopFromHandshake(config, conn, peer, store, bus, logger)
}

// Accept completes the inbound handshake exchange for infoHash over a
// connection already accepted at the TCP level (e.g. from a listener), and
// returns a Loop ready to Run. The connection is rejected (and closed) if
// the remote's handshake InfoHash does not match infoHash. bus and logger
// may be nil, per NewLoop.
func Accept(
	conn net.Conn,
	infoHash core.InfoHash,
	localPeerID core.PeerID,
	config Config,
	store *piecestore.Store,
	bus core.AvailabilityBus,
	logger *zap.SugaredLogger,
) (*Loop, error) {
	config = config.applyDefaults()

	peer, err := peerwire.CompleteInbound(conn, infoHash, localPeerID, config.Fast, config.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return newLoopFromHandshake(config, conn, peer, store, bus, logger)
}

func newLoopFromHandshake(
	config Config,
	conn net.Conn,
	peer peerwire.Handshake,
	store *piecestore.Store,
	bus core.AvailabilityBus,
	logger *zap.SugaredLogger,
) (*Loop, error) {
	fastEnabled := config.Fast && peer.SupportsFast()
	session := NewSession(peer.PeerID, store, fastEnabled)
	loop, err := NewLoop(config, conn, session, store, bus, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return loop, nil
}
