// Package piecestore implements the Piece Store component: piece
// verification, block assembly, and bitfield ownership atop a Storage Map.
package piecestore

import (
	"bytes"
	"crypto/sha1"
	"sync"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/storagemap"
)

// DefaultBlockSize is the conventional BitTorrent block (chunk) length: 16 KiB.
const DefaultBlockSize = 16 * 1024

// BlockIx identifies a block request: a sub-range of a piece.
type BlockIx struct {
	PieceIndex int
	Offset     int64
	Length     int64
}

// Block is a block of piece data received from or destined for a peer.
type Block struct {
	PieceIndex int
	Offset     int64
	Data       []byte
}

type pieceStatus int

const (
	statusMissing pieceStatus = iota
	statusPartial
	statusComplete
)

type pieceState struct {
	mu            sync.Mutex
	status        pieceStatus
	receivedBytes int64
}

// Store implements piece verification and block assembly atop a Storage Map.
// Pieces transition Missing -> Partial -> Complete only; a Complete piece is
// never demoted.
type Store struct {
	mapping     *storagemap.Map
	mi          core.Metainfo
	pieceLength int64
	numPieces   int
	lastLength  int64
	blockSize   int64

	pieces []*pieceState
	bf     *Bitfield
}

// New creates a Store backed by mapping, verifying pieces against the hashes
// and lengths declared in mi.
func New(mapping *storagemap.Map, mi core.Metainfo) *Store {
	n := mi.PieceCount()
	pieces := make([]*pieceState, n)
	for i := range pieces {
		pieces[i] = &pieceState{}
	}
	return &Store{
		mapping:     mapping,
		mi:          mi,
		pieceLength: mi.PieceLength(),
		numPieces:   n,
		lastLength:  lastPieceLength(mapping.Size(), mi.PieceLength(), n),
		blockSize:   DefaultBlockSize,
		pieces:      pieces,
		bf:          NewBitfield(n),
	}
}

func lastPieceLength(total, pieceLength int64, n int) int64 {
	if n == 0 {
		return 0
	}
	rem := total - pieceLength*int64(n-1)
	if rem <= 0 {
		return pieceLength
	}
	return rem
}

// PieceLength returns the length of piece index i, accounting for a
// possibly-shorter final piece.
func (s *Store) PieceLength(i int) int64 {
	if i == s.numPieces-1 {
		return s.lastLength
	}
	return s.pieceLength
}

func (s *Store) pieceOffset(i int) int64 {
	return s.pieceLength * int64(i)
}

func (s *Store) checkPieceIndex(i int) error {
	if i < 0 || i >= s.numPieces {
		return PieceOutOfBoundsError{Index: i, NumPieces: s.numPieces}
	}
	return nil
}

// GetBlock reads length bytes at offset within piece index from the
// underlying Storage Map.
func (s *Store) GetBlock(index int, offset, length int64) ([]byte, error) {
	if err := s.checkPieceIndex(index); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+length > s.PieceLength(index) {
		return nil, BlockOutOfBoundsError{PieceIndex: index, Offset: offset, Length: length, PieceLength: s.PieceLength(index)}
	}
	return s.mapping.Read(s.pieceOffset(index)+offset, length)
}

// PutBlock writes a block's bytes into the Storage Map. Returns true iff
// this write completed the piece and the piece's SHA-1 hash matches the
// expected metainfo hash. On a hash mismatch, the piece is reset to Missing
// and its block accounting cleared so it can be re-requested.
func (s *Store) PutBlock(b Block) (bool, error) {
	if err := s.checkPieceIndex(b.PieceIndex); err != nil {
		return false, err
	}
	pieceLen := s.PieceLength(b.PieceIndex)
	if b.Offset < 0 || int64(len(b.Data)) < 0 || b.Offset+int64(len(b.Data)) > pieceLen {
		return false, BlockOutOfBoundsError{
			PieceIndex: b.PieceIndex, Offset: b.Offset, Length: int64(len(b.Data)), PieceLength: pieceLen,
		}
	}

	ps := s.pieces[b.PieceIndex]
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.status == statusComplete {
		// Already verified; a duplicate or late block is a harmless no-op.
		return true, nil
	}

	s.mapping.Write(s.pieceOffset(b.PieceIndex)+b.Offset, b.Data)
	ps.status = statusPartial
	ps.receivedBytes += int64(len(b.Data))

	if ps.receivedBytes < pieceLen {
		return false, nil
	}

	// All bytes for the piece have arrived; verify before promoting.
	data, err := s.mapping.Read(s.pieceOffset(b.PieceIndex), pieceLen)
	if err != nil {
		return false, err
	}
	expected, err := s.mi.PieceHash(b.PieceIndex)
	if err != nil {
		return false, err
	}
	actual := sha1.Sum(data)
	if !bytes.Equal(actual[:], expected[:]) {
		ps.status = statusMissing
		ps.receivedBytes = 0
		return false, nil
	}

	ps.status = statusComplete
	s.bf.Add(b.PieceIndex)
	return true, nil
}

// SelectBlock yields the sequential block requests covering piece index,
// in DefaultBlockSize chunks (the final block may be shorter).
func (s *Store) SelectBlock(index int) ([]BlockIx, error) {
	if err := s.checkPieceIndex(index); err != nil {
		return nil, err
	}
	length := s.PieceLength(index)
	var blocks []BlockIx
	for off := int64(0); off < length; off += s.blockSize {
		n := s.blockSize
		if off+n > length {
			n = length - off
		}
		blocks = append(blocks, BlockIx{PieceIndex: index, Offset: off, Length: n})
	}
	return blocks, nil
}

// HasPiece reports whether piece i has been verified complete.
func (s *Store) HasPiece(i int) bool {
	return s.bf.Has(i)
}

// ClientBitfield returns the Store's own set of verified pieces. It is
// shared, not copied: pieces verified later are visible through it.
func (s *Store) ClientBitfield() *Bitfield {
	return s.bf
}

// NumPieces returns the total piece count.
func (s *Store) NumPieces() int {
	return s.numPieces
}

// Complete reports whether every piece has been verified.
func (s *Store) Complete() bool {
	return s.bf.All()
}
