package peerexchange

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/peerwire"
)

// TestAcceptRejectsInfoHashMismatch confirms Accept refuses to promote a
// connection into a Loop when the dialing peer's handshake names a
// different torrent than the one we're serving.
func TestAcceptRejectsInfoHashMismatch(t *testing.T) {
	require := require.New(t)

	expected, _ := core.NewInfoHashFromHex("0102030405060708090a0b0c0d0e0f1011121314")
	other, _ := core.NewInfoHashFromHex("1112131415060708090a0b0c0d0e0f1011121314")
	dialerID, err := core.HashedPeerID("mismatched-dialer")
	require.NoError(err)
	acceptorID, err := core.HashedPeerID("acceptor")
	require.NoError(err)

	store := newLoopTestStore(t, make([]byte, 8), 4, true)

	dialerConn, acceptorConn := net.Pipe()
	defer dialerConn.Close()

	go func() {
		peerwire.CompleteOutbound(dialerConn, other, dialerID, false, time.Second)
	}()

	loop, err := Accept(acceptorConn, expected, acceptorID, Config{
		HandshakeTimeout: time.Second,
	}, store, nil, nil)
	require.Error(err)
	require.Nil(loop)
	require.True(peerwire.IsInfoHashMismatchError(err))
}

// TestDialAndAcceptEstablishLoop drives a real Dial against a real Accept
// over TCP and confirms both sides land on a Loop keyed to the peer id
// presented during the handshake.
func TestDialAndAcceptEstablishLoop(t *testing.T) {
	require := require.New(t)

	content := make([]byte, 8)
	infoHash := core.NewInfoHashFromBytes(content)

	dialerID, err := core.HashedPeerID("dialer")
	require.NoError(err)
	acceptorID, err := core.HashedPeerID("acceptor")
	require.NoError(err)

	dialerStore := newLoopTestStore(t, content, 4, false)
	acceptorStore := newLoopTestStore(t, content, 4, true)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	defer ln.Close()

	config := Config{Fast: true, HandshakeTimeout: 2 * time.Second}

	var acceptorLoop *Loop
	var acceptorErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			acceptorErr = err
			return
		}
		acceptorLoop, acceptorErr = Accept(conn, infoHash, acceptorID, config, acceptorStore, nil, nil)
	}()

	dialerLoop, err := Dial(ln.Addr().String(), infoHash, dialerID, config, dialerStore, nil, nil)
	require.NoError(err)
	defer dialerLoop.Close()

	<-done
	require.NoError(acceptorErr)
	defer acceptorLoop.Close()

	require.Equal(acceptorID, dialerLoop.session.PeerID)
	require.Equal(dialerID, acceptorLoop.session.PeerID)
	require.True(dialerLoop.session.FastEnabled())
	require.True(acceptorLoop.session.FastEnabled())
}
