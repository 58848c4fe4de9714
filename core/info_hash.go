package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// InfoHash is the 20-byte SHA-1 hash of a torrent's bencoded info dictionary.
// It is the authoritative identifier for a torrent across trackers and peers.
type InfoHash [20]byte

// NewInfoHashFromHex converts a 40-character hex string into an InfoHash.
func NewInfoHashFromHex(s string) (InfoHash, error) {
	if len(s) != 40 {
		return InfoHash{}, fmt.Errorf("invalid hash: expected 40 characters, got %d", len(s))
	}
	var h InfoHash
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return InfoHash{}, fmt.Errorf("invalid hex: %s", err)
	}
	if n != 20 {
		return InfoHash{}, fmt.Errorf("invariant violation: expected 20 bytes, got %d", n)
	}
	return h, nil
}

// NewInfoHashFromBytes hashes raw bencoded info-dict bytes into an InfoHash.
func NewInfoHashFromBytes(b []byte) InfoHash {
	var h InfoHash
	hasher := sha1.New()
	hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return h
}

// NewInfoHashFromRawBytes copies an already-computed 20-byte hash, as
// received over the wire from a peer or tracker, into an InfoHash.
func NewInfoHashFromRawBytes(b []byte) (InfoHash, error) {
	if len(b) != 20 {
		return InfoHash{}, fmt.Errorf("invalid hash: expected 20 bytes, got %d", len(b))
	}
	var h InfoHash
	copy(h[:], b)
	return h, nil
}

// Bytes returns the raw 20 bytes of h.
func (h InfoHash) Bytes() []byte { return h[:] }

// Hex converts h into its hexadecimal encoding.
func (h InfoHash) Hex() string { return hex.EncodeToString(h[:]) }

func (h InfoHash) String() string { return h.Hex() }
