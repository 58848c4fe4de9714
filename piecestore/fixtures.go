package piecestore

import (
	"crypto/sha1"

	"github.com/uber/torrentcore/core"
)

// fakeMetainfo is a minimal core.Metainfo used by tests in this package and
// by peerexchange's tests, which need a Piece Store without parsing a real
// .torrent file.
type fakeMetainfo struct {
	infoHash    core.InfoHash
	pieceLength int64
	hashes      [][20]byte
	layout      []core.FileEntry
}

// NewFakeMetainfo builds a core.Metainfo whose piece hashes are computed
// directly from content, split into pieces of pieceLength bytes (the final
// piece may be shorter).
func NewFakeMetainfo(content []byte, pieceLength int64) core.Metainfo {
	var hashes [][20]byte
	for off := int64(0); off < int64(len(content)); off += pieceLength {
		end := off + pieceLength
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		hashes = append(hashes, sha1.Sum(content[off:end]))
	}
	return &fakeMetainfo{
		infoHash:    core.NewInfoHashFromBytes(content),
		pieceLength: pieceLength,
		hashes:      hashes,
		layout:      []core.FileEntry{{Path: "content", Size: int64(len(content))}},
	}
}

func (m *fakeMetainfo) InfoHash() core.InfoHash    { return m.infoHash }
func (m *fakeMetainfo) PieceLength() int64         { return m.pieceLength }
func (m *fakeMetainfo) PieceCount() int            { return len(m.hashes) }
func (m *fakeMetainfo) FileLayout() []core.FileEntry { return m.layout }

func (m *fakeMetainfo) PieceHash(index int) ([20]byte, error) {
	if index < 0 || index >= len(m.hashes) {
		return [20]byte{}, PieceOutOfBoundsError{Index: index, NumPieces: len(m.hashes)}
	}
	return m.hashes[index], nil
}
