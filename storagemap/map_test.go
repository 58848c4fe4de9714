package storagemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixtureFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestOpenSizeAndClose(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{
		{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10},
		{Path: writeFixtureFile(t, dir, "b", 5), ExpectedSize: 5},
		{Path: writeFixtureFile(t, dir, "c", 20), ExpectedSize: 20},
	}

	m, err := Open(layout, ReadOnly)
	require.NoError(err)
	require.Equal(int64(35), m.Size())
	require.Equal(3, m.entryCount())

	require.NoError(m.Close())
	// Idempotent.
	require.NoError(m.Close())
}

func TestOpenEmptyLayout(t *testing.T) {
	require := require.New(t)

	m, err := Open(nil, ReadOnly)
	require.NoError(err)
	require.Equal(int64(0), m.Size())

	_, _, ok := m.Resolve(0)
	require.False(ok)
}

func TestOpenFileSizeMismatchRollsBack(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{
		{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10},
		{Path: writeFixtureFile(t, dir, "b", 5), ExpectedSize: 999}, // wrong size
	}

	m, err := Open(layout, ReadOnly)
	require.Error(err)
	require.Nil(m)
	require.True(IsFileSizeMismatchError(err))
}

// TestResolveLayoutBsearch verifies offset resolution across a three-file
// layout with known base offsets: [("a",10),("b",5),("c",20)] => size=35.
func TestResolveLayoutBsearch(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{
		{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10},
		{Path: writeFixtureFile(t, dir, "b", 5), ExpectedSize: 5},
		{Path: writeFixtureFile(t, dir, "c", 20), ExpectedSize: 20},
	}
	m, err := Open(layout, ReadOnly)
	require.NoError(err)
	defer m.Close()

	require.Equal(int64(35), m.Size())

	cases := []struct {
		offset       int64
		wantFile     int
		wantInner    int64
		wantFound    bool
	}{
		{0, 0, 0, true},
		{9, 0, 9, true},
		{10, 1, 0, true},
		{14, 1, 4, true},
		{15, 2, 0, true},
		{34, 2, 19, true},
		{35, 0, 0, false},
	}
	for _, c := range cases {
		fi, inner, ok := m.Resolve(c.offset)
		require.Equal(c.wantFound, ok, "offset=%d", c.offset)
		if ok {
			require.Equal(c.wantFile, fi, "offset=%d", c.offset)
			require.Equal(c.wantInner, inner, "offset=%d", c.offset)
		}
	}
}

func TestReadOutOfRange(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10}}
	m, err := Open(layout, ReadOnly)
	require.NoError(err)
	defer m.Close()

	_, err = m.Read(5, 10)
	require.Error(err)
	require.True(IsOutOfRangeError(err))

	// Boundary: read(size, 0) = empty.
	b, err := m.Read(10, 0)
	require.NoError(err)
	require.Empty(b)
}

func TestRoundTripReadWrite(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{
		{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10},
		{Path: writeFixtureFile(t, dir, "b", 5), ExpectedSize: 5},
	}
	m, err := Open(layout, ReadWrite)
	require.NoError(err)
	defer m.Close()

	payload := []byte("hello world span")
	m.Write(6, payload) // spans across the "a"/"b" boundary at offset 10.

	got, err := m.Read(6, int64(len(payload)))
	require.NoError(err)
	require.Equal(payload, got)
}

func TestWritePastEndTruncatesSilently(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10}}
	m, err := Open(layout, ReadWrite)
	require.NoError(err)
	defer m.Close()

	// write(size-1, "XY") writes one byte only.
	m.Write(9, []byte("XY"))
	got, err := m.Read(9, 1)
	require.NoError(err)
	require.Equal([]byte("X"), got)

	// Writing fully past the end is a silent no-op.
	m.Write(10, []byte("Z"))
}

func TestUnsafeViewAliasesMapping(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	layout := Layout{{Path: writeFixtureFile(t, dir, "a", 10), ExpectedSize: 10}}
	m, err := Open(layout, ReadWrite)
	require.NoError(err)
	defer m.Close()

	view, err := m.UnsafeView(0, 10)
	require.NoError(err)

	m.Write(0, []byte("ABCDEFGHIJ"))
	require.Equal([]byte("ABCDEFGHIJ"), view, "unsafe view must observe concurrent writes")
}

func TestConcatenationRoundTrip(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	sizes := map[string]int{"a": 7, "b": 3, "c": 11}
	layout := Layout{
		{Path: writeFixtureFile(t, dir, "a", sizes["a"]), ExpectedSize: int64(sizes["a"])},
		{Path: writeFixtureFile(t, dir, "b", sizes["b"]), ExpectedSize: int64(sizes["b"])},
		{Path: writeFixtureFile(t, dir, "c", sizes["c"]), ExpectedSize: int64(sizes["c"])},
	}
	m, err := Open(layout, ReadOnly)
	require.NoError(err)
	defer m.Close()

	var want []byte
	for _, f := range layout {
		b, err := os.ReadFile(f.Path)
		require.NoError(err)
		want = append(want, b...)
	}

	got, err := m.Read(0, m.Size())
	require.NoError(err)
	require.Equal(want, got)
}
