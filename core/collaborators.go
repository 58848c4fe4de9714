package core

// FileEntry describes one physical file within a torrent's layout, as
// surfaced by the Metainfo collaborator.
type FileEntry struct {
	Path string
	Size int64
}

// Metainfo is the interface this engine consumes from the (out of scope)
// .torrent metainfo parser. Only the fields the core needs are exposed.
//
// Monotonic time is supplied directly via github.com/andres-erbsen/clock.Clock
// throughout this module rather than a redundant interface here.
type Metainfo interface {
	InfoHash() InfoHash
	PieceLength() int64
	PieceCount() int
	PieceHash(index int) ([20]byte, error)
	FileLayout() []FileEntry
}

// AvailabilityBus broadcasts newly learned pieces to the rest of a swarm
// session so that other peer connections can act on them. The core engine
// only ever produces to this interface; it never consumes from it.
type AvailabilityBus interface {
	Available(bf []int, session PeerID)
}

// RNG abstracts the source of 32-bit draws used for UDP tracker transaction
// ids. A cryptographically adequate source is required so that a malicious
// tracker cannot predict or collide transaction ids.
type RNG interface {
	Uint32() uint32
}
