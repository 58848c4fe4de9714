package piecestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/uber/torrentcore/core"
	mockcore "github.com/uber/torrentcore/mocks/core"
	"github.com/uber/torrentcore/storagemap"
)

func newMockBackedStore(t *testing.T, size int64, mi core.Metainfo) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "content")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))

	mp, err := storagemap.Open(storagemap.Layout{
		{Path: path, ExpectedSize: size},
	}, storagemap.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { mp.Close() })

	return New(mp, mi)
}

// TestPutBlockPropagatesMetainfoHashError confirms a failure to look up a
// piece's expected hash (e.g. a Metainfo backed by an unreachable index)
// surfaces to the caller rather than being treated as a verification
// mismatch.
func TestPutBlockPropagatesMetainfoHashError(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mi := mockcore.NewMockMetainfo(ctrl)
	mi.EXPECT().PieceCount().Return(1)
	mi.EXPECT().PieceLength().Return(int64(8)).Times(2)
	mi.EXPECT().PieceHash(0).Return([20]byte{}, errors.New("hash unavailable"))

	store := newMockBackedStore(t, 8, mi)

	completed, err := store.PutBlock(Block{PieceIndex: 0, Offset: 0, Data: make([]byte, 8)})
	require.Error(err)
	require.False(completed)
	require.False(store.HasPiece(0))
}
