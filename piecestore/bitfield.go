package piecestore

import (
	"bytes"
	"sync"

	"github.com/willf/bitset"
)

// Bitfield is a thread-safe set of piece indices, backed by willf/bitset.
// It supports union, difference, membership, min-index, emptiness, and
// "all"/"none" queries. Only indices < N are representable, matching the
// bitfield's fixed piece count N.
type Bitfield struct {
	mu sync.RWMutex
	n  uint
	b  *bitset.BitSet
}

// NewBitfield returns an empty Bitfield over n piece indices.
func NewBitfield(n int) *Bitfield {
	return &Bitfield{n: uint(n), b: bitset.New(uint(n))}
}

// Len returns the piece count N.
func (bf *Bitfield) Len() int {
	return int(bf.n)
}

// Has reports whether piece i is a member.
func (bf *Bitfield) Has(i int) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.b.Test(uint(i))
}

// Add sets piece i.
func (bf *Bitfield) Add(i int) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.b.Set(uint(i))
}

// SetAll sets every representable index, used for the Fast extension's
// HaveAll message.
func (bf *Bitfield) SetAll() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for i := uint(0); i < bf.n; i++ {
		bf.b.Set(i)
	}
}

// Clear resets every representable index, used for the Fast extension's
// HaveNone message.
func (bf *Bitfield) Clear() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.b.ClearAll()
}

// ReplaceFrom overwrites bf's contents with the bits of raw, a packed
// big-endian bitfield as sent on the wire (BEP-3 Bitfield message),
// resized to bf's N.
func (bf *Bitfield) ReplaceFrom(raw []byte) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.b = bitset.New(bf.n)
	for i := uint(0); i < bf.n; i++ {
		byteIdx := i / 8
		if int(byteIdx) >= len(raw) {
			break
		}
		bit := 7 - (i % 8)
		if raw[byteIdx]&(1<<bit) != 0 {
			bf.b.Set(i)
		}
	}
}

// Marshal packs bf into the BEP-3 wire Bitfield payload.
func (bf *Bitfield) Marshal() []byte {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	out := make([]byte, (bf.n+7)/8)
	for i := uint(0); i < bf.n; i++ {
		if bf.b.Test(i) {
			out[i/8] |= 1 << (7 - (i % 8))
		}
	}
	return out
}

// Union returns the set union of bf and other as a plain index slice.
func (bf *Bitfield) Union(other *Bitfield) []int {
	bf.mu.RLock()
	other.mu.RLock()
	defer bf.mu.RUnlock()
	defer other.mu.RUnlock()

	u := bf.b.Union(other.b)
	return setBits(u)
}

// Difference returns the indices in bf but not in other (bf \ other).
func (bf *Bitfield) Difference(other *Bitfield) []int {
	bf.mu.RLock()
	other.mu.RLock()
	defer bf.mu.RUnlock()
	defer other.mu.RUnlock()

	d := bf.b.Difference(other.b)
	return setBits(d)
}

// Empty reports whether bf has no members.
func (bf *Bitfield) Empty() bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.b.None()
}

// All reports whether every representable index is a member.
func (bf *Bitfield) All() bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.n > 0 && bf.b.All()
}

// Min returns the smallest member index and true, or (0, false) if empty.
func (bf *Bitfield) Min() (int, bool) {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	i, ok := bf.b.NextSet(0)
	return int(i), ok
}

// Copy returns an independent snapshot of bf as a plain index slice.
func (bf *Bitfield) Copy() []int {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return setBits(bf.b)
}

func setBits(b *bitset.BitSet) []int {
	var out []int
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

func (bf *Bitfield) String() string {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	var buf bytes.Buffer
	for i := uint(0); i < bf.n; i++ {
		if bf.b.Test(i) {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}
