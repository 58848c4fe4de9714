// Package storagemap implements the Storage Map component: a memory-mapped,
// position-indexed file layout presenting a contiguous logical address space
// over a list of physical files.
package storagemap

import (
	"sync"
)

// Map presents a contiguous logical byte address space over an ordered list
// of memory-mapped files. It is safe for concurrent reads and writes to
// disjoint byte ranges; overlapping-range coordination is the caller's
// responsibility (the Piece Store provides piece-granularity locking).
type Map struct {
	mu      sync.RWMutex
	entries []*entry
	size    int64
	closed  bool
}

// Open maps every file in layout according to mode. If any file's mapped
// size does not match its expected size, every region successfully mapped so
// far is unmapped before the error is returned.
func Open(layout Layout, mode Mode) (*Map, error) {
	entries := make([]*entry, 0, len(layout))
	var base int64

	rollback := func() {
		for _, e := range entries {
			e.region.close()
		}
	}

	for _, spec := range layout {
		region, err := openRegion(spec.Path, spec.ExpectedSize, mode)
		if err != nil {
			rollback()
			return nil, err
		}
		entries = append(entries, &entry{
			path:       spec.Path,
			baseOffset: base,
			length:     spec.ExpectedSize,
			region:     region,
		})
		base += spec.ExpectedSize
	}

	return &Map{entries: entries, size: base}, nil
}

// Close releases every mapping. Idempotent.
func (m *Map) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for _, e := range m.entries {
		if err := e.region.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Size returns the total logical size of m in bytes. O(1).
func (m *Map) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Resolve exposes the offset-resolution algorithm for direct testing: given
// a logical offset x, it returns the index of the file entry containing x
// and the intra-file offset within that entry. ok is false if x is not a
// valid offset into the map (including x == Size()).
func (m *Map) Resolve(x int64) (fileIndex int, innerOffset int64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, inner := m.resolve(x)
	if idx == -1 {
		return 0, 0, false
	}
	return idx, inner, true
}

// resolve performs a binary search over entries by base_offset, returning
// the index of the entry containing x and the intra-file offset within it.
// Returns (-1, 0) if x is outside [0, size).
func (m *Map) resolve(x int64) (int, int64) {
	n := len(m.entries)
	if n == 0 || x < 0 || x >= m.size {
		return -1, 0
	}

	lo, hi := 0, n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := m.entries[mid]
		switch {
		case x < e.baseOffset:
			hi = mid - 1
		case x >= e.end():
			lo = mid + 1
		default:
			return mid, x - e.baseOffset
		}
	}
	return -1, 0
}

// Read copies exactly length bytes starting at offset into a new,
// caller-owned buffer. Fails with OutOfRangeError if [offset, offset+length)
// is not entirely within the map.
func (m *Map) Read(offset, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if length < 0 || offset < 0 || offset+length > m.size {
		return nil, OutOfRangeError{Offset: offset, Length: length, Size: m.size}
	}
	out := make([]byte, length)
	m.copyRange(offset, out)
	return out, nil
}

// UnsafeView returns a zero-copy slice aliasing the underlying mapping.
// Callers must not retain the returned slice past Close. It is valid only
// when [offset, offset+length) lies within a single file entry; spans
// crossing a file boundary fail with OutOfRangeError since no contiguous
// backing slice exists for them.
func (m *Map) UnsafeView(offset, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if length < 0 || offset < 0 || offset+length > m.size {
		return nil, OutOfRangeError{Offset: offset, Length: length, Size: m.size}
	}
	if length == 0 {
		return []byte{}, nil
	}

	idx, inner := m.resolve(offset)
	e := m.entries[idx]
	if inner+length > e.length {
		return nil, OutOfRangeError{Offset: offset, Length: length, Size: m.size}
	}
	return e.region.bytes()[inner : inner+length], nil
}

// copyRange walks entries starting at offset, copying bytes into dst until
// dst is exhausted or the map ends. Caller must hold m.mu.
func (m *Map) copyRange(offset int64, dst []byte) {
	idx, inner := m.resolve(offset)
	if idx == -1 {
		return
	}
	remaining := dst
	for idx < len(m.entries) && len(remaining) > 0 {
		e := m.entries[idx]
		avail := e.length - inner
		n := int64(len(remaining))
		if n > avail {
			n = avail
		}
		copy(remaining[:n], e.region.bytes()[inner:inner+n])
		remaining = remaining[n:]
		idx++
		inner = 0
	}
}

// Write writes min(len(data), size-offset) bytes of data starting at offset,
// silently truncating at end-of-map. Writing at or past the end of the map
// is a no-op. Concurrent readers of the written region observe the new
// bytes.
func (m *Map) Write(offset int64, data []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset < 0 || offset >= m.size || len(data) == 0 {
		return
	}

	idx, inner := m.resolve(offset)
	if idx == -1 {
		return
	}
	remaining := data
	for idx < len(m.entries) && len(remaining) > 0 {
		e := m.entries[idx]
		avail := e.length - inner
		n := int64(len(remaining))
		if n > avail {
			n = avail
		}
		copy(e.region.bytes()[inner:inner+n], remaining[:n])
		remaining = remaining[n:]
		idx++
		inner = 0
	}
}

// entryCount exposes the number of file entries, for tests verifying the
// no-gap/no-overlap layout invariant.
func (m *Map) entryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
