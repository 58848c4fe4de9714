package peerwire

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/uber/torrentcore/core"
)

// protocolID is the fixed protocol name string exchanged during a handshake.
const protocolID = "BitTorrent protocol"

// handshakeLen is the fixed total length of a handshake message: 1 (pstrlen)
// + 19 (pstr) + 8 (reserved) + 20 (info_hash) + 20 (peer_id).
const handshakeLen = 1 + len(protocolID) + 8 + 20 + 20

// extensionFastBit is the reserved-byte bit signaling support for the Fast
// extension (BEP-6), set in the last reserved byte per convention.
const extensionFastBit = 0x04

// Handshake is the fixed 68-byte message exchanged before any framed
// messages are sent.
type Handshake struct {
	Reserved [8]byte
	InfoHash core.InfoHash
	PeerID   core.PeerID
}

// SupportsFast reports whether the reserved bytes advertise the Fast
// extension.
func (h Handshake) SupportsFast() bool {
	return h.Reserved[7]&extensionFastBit != 0
}

// NewHandshake constructs a Handshake, optionally advertising Fast support.
func NewHandshake(infoHash core.InfoHash, peerID core.PeerID, fast bool) Handshake {
	h := Handshake{InfoHash: infoHash, PeerID: peerID}
	if fast {
		h.Reserved[7] |= extensionFastBit
	}
	return h
}

// Encode serializes h into its 68-byte wire representation.
func (h Handshake) Encode() []byte {
	buf := make([]byte, handshakeLen)
	buf[0] = byte(len(protocolID))
	copy(buf[1:], protocolID)
	copy(buf[1+len(protocolID):], h.Reserved[:])
	copy(buf[1+len(protocolID)+8:], h.InfoHash.Bytes())
	copy(buf[1+len(protocolID)+8+20:], h.PeerID.Bytes())
	return buf
}

// WriteHandshake writes h to w.
func WriteHandshake(w io.Writer, h Handshake) error {
	_, err := w.Write(h.Encode())
	return err
}

// ReadHandshake reads and parses a Handshake from r, validating the protocol
// identifier string.
func ReadHandshake(r io.Reader) (Handshake, error) {
	var pstrlenBuf [1]byte
	if _, err := io.ReadFull(r, pstrlenBuf[:]); err != nil {
		return Handshake{}, err
	}
	pstrlen := int(pstrlenBuf[0])

	rest := make([]byte, pstrlen+8+20+20)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Handshake{}, err
	}

	pstr := string(rest[:pstrlen])
	if pstr != protocolID {
		return Handshake{}, fmt.Errorf("peerwire: unrecognized protocol identifier %q", pstr)
	}

	var h Handshake
	copy(h.Reserved[:], rest[pstrlen:pstrlen+8])
	infoHash, err := core.NewInfoHashFromRawBytes(rest[pstrlen+8 : pstrlen+8+20])
	if err != nil {
		return Handshake{}, err
	}
	h.InfoHash = infoHash
	peerID, err := core.NewPeerIDFromBytes(rest[pstrlen+8+20:])
	if err != nil {
		return Handshake{}, err
	}
	h.PeerID = peerID
	return h, nil
}

// CompleteOutbound performs the dialing side of a handshake exchange over
// conn: send our handshake, read the peer's, and reject if its InfoHash does
// not match expectedInfoHash. Mirrors a Handshaker's dial-then-fullHandshake
// sequence. conn's deadline is set for the duration of the exchange and
// cleared before returning.
func CompleteOutbound(
	conn net.Conn,
	expectedInfoHash core.InfoHash,
	localPeerID core.PeerID,
	fast bool,
	timeout time.Duration,
) (Handshake, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Handshake{}, err
	}
	defer conn.SetDeadline(time.Time{})

	if err := WriteHandshake(conn, NewHandshake(expectedInfoHash, localPeerID, fast)); err != nil {
		return Handshake{}, err
	}
	peer, err := ReadHandshake(conn)
	if err != nil {
		return Handshake{}, err
	}
	if peer.InfoHash != expectedInfoHash {
		return Handshake{}, InfoHashMismatchError{Expected: expectedInfoHash, Actual: peer.InfoHash}
	}
	return peer, nil
}

// CompleteInbound performs the accepting side of a handshake exchange over
// conn, opened by a remote peer: read their handshake first, reject if its
// InfoHash does not match expectedInfoHash, then send ours back. Mirrors a
// Handshaker's Accept+Establish split. conn's deadline is set for the
// duration of the exchange and cleared before returning.
func CompleteInbound(
	conn net.Conn,
	expectedInfoHash core.InfoHash,
	localPeerID core.PeerID,
	fast bool,
	timeout time.Duration,
) (Handshake, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Handshake{}, err
	}
	defer conn.SetDeadline(time.Time{})

	peer, err := ReadHandshake(conn)
	if err != nil {
		return Handshake{}, err
	}
	if peer.InfoHash != expectedInfoHash {
		return Handshake{}, InfoHashMismatchError{Expected: expectedInfoHash, Actual: peer.InfoHash}
	}
	if err := WriteHandshake(conn, NewHandshake(expectedInfoHash, localPeerID, fast)); err != nil {
		return Handshake{}, err
	}
	return peer, nil
}
