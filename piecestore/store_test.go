package piecestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uber/torrentcore/storagemap"
)

func newTestStore(t *testing.T, content []byte, pieceLength int64) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "content")
	require.NoError(t, os.WriteFile(path, make([]byte, len(content)), 0644))

	mp, err := storagemap.Open(storagemap.Layout{
		{Path: path, ExpectedSize: int64(len(content))},
	}, storagemap.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { mp.Close() })

	mi := NewFakeMetainfo(content, pieceLength)
	return New(mp, mi)
}

func TestSelectBlockSequentialWithinPiece(t *testing.T) {
	require := require.New(t)
	content := make([]byte, 40*1024)
	store := newTestStore(t, content, 40*1024)

	blocks, err := store.SelectBlock(0)
	require.NoError(err)
	require.Len(blocks, 3)
	require.Equal(BlockIx{0, 0, DefaultBlockSize}, blocks[0])
	require.Equal(BlockIx{0, DefaultBlockSize, DefaultBlockSize}, blocks[1])
	require.Equal(BlockIx{0, 2 * DefaultBlockSize, 40*1024 - 2*DefaultBlockSize}, blocks[2])
}

func TestPutBlockCompletesAndVerifies(t *testing.T) {
	require := require.New(t)
	content := []byte("this is piece zero content, exactly right size!")
	store := newTestStore(t, content, int64(len(content)))

	completed, err := store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: content})
	require.NoError(err)
	require.True(completed)
	require.True(store.HasPiece(0))
	require.True(store.Complete())

	got, err := store.GetBlock(0, 0, int64(len(content)))
	require.NoError(err)
	require.Equal(content, got)
}

func TestPutBlockPartialThenComplete(t *testing.T) {
	require := require.New(t)
	content := []byte("0123456789ABCDEF")
	store := newTestStore(t, content, int64(len(content)))

	completed, err := store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: content[:8]})
	require.NoError(err)
	require.False(completed)
	require.False(store.HasPiece(0))

	completed, err = store.PutBlock(Block{PieceIndex: 0, Offset: 8, Data: content[8:]})
	require.NoError(err)
	require.True(completed)
	require.True(store.HasPiece(0))
}

func TestPutBlockHashMismatchResetsPiece(t *testing.T) {
	require := require.New(t)
	content := []byte("correct piece bytes right here!!")
	store := newTestStore(t, content, int64(len(content)))

	corrupt := make([]byte, len(content))
	copy(corrupt, content)
	corrupt[0] ^= 0xFF

	completed, err := store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: corrupt})
	require.NoError(err)
	require.False(completed)
	require.False(store.HasPiece(0))

	// Piece was reset to Missing; a correct retry should now succeed.
	completed, err = store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: content})
	require.NoError(err)
	require.True(completed)
}

func TestPutBlockNeverDemotesCompletePiece(t *testing.T) {
	require := require.New(t)
	content := []byte("stable complete piece content!!")
	store := newTestStore(t, content, int64(len(content)))

	completed, err := store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: content})
	require.NoError(err)
	require.True(completed)

	// A duplicate/late write to an already-complete piece is a harmless no-op.
	completed, err = store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: content})
	require.NoError(err)
	require.True(completed)
	require.True(store.HasPiece(0))
}

func TestGetBlockOutOfBounds(t *testing.T) {
	require := require.New(t)
	content := make([]byte, 16)
	store := newTestStore(t, content, 16)

	_, err := store.GetBlock(0, 10, 10)
	require.Error(err)
	require.True(IsBlockOutOfBoundsError(err))

	_, err = store.GetBlock(5, 0, 1)
	require.Error(err)
	require.True(IsPieceOutOfBoundsError(err))
}

func TestFinalPieceShorterLength(t *testing.T) {
	require := require.New(t)
	content := make([]byte, 25) // pieceLength=10 -> pieces of 10,10,5
	store := newTestStore(t, content, 10)

	require.Equal(int64(10), store.PieceLength(0))
	require.Equal(int64(10), store.PieceLength(1))
	require.Equal(int64(5), store.PieceLength(2))
}
