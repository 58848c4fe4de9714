package udptracker

import "sync"

// slot is a single-shot handoff from the listener goroutine to the caller
// awaiting a response for one transaction.
type slot struct {
	ch chan slotResult
}

type slotResult struct {
	action action
	body   []byte
	err    error
}

func newSlot() *slot {
	return &slot{ch: make(chan slotResult, 1)}
}

// pendingTable tracks, per tracker address, the transaction ids currently
// awaiting a response.
type pendingTable struct {
	mu   sync.Mutex
	byAddr map[string]map[int32]*slot
}

func newPendingTable() *pendingTable {
	return &pendingTable{byAddr: make(map[string]map[int32]*slot)}
}

// Register allocates a transaction id for addr starting from the given
// random draw, registers a fresh slot under it, and returns both.
//
// If the drawn id is already in use, the nearest unused id is found by
// scanning upward through consecutive used ids for the next hole, wrapping
// around the 32-bit space; the downward scan that follows runs only when the
// upward scan found no hole. A table with all 2^32 ids in use
// is treated as exhausted, which is effectively impossible with a
// well-behaved entropy source.
func (p *pendingTable) Register(addr string, drawn int32) (int32, *slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.byAddr[addr]
	if !ok {
		m = make(map[int32]*slot)
		p.byAddr[addr] = m
	}

	id, ok := firstUnused(m, drawn)
	if !ok {
		return 0, nil, false
	}

	s := newSlot()
	m[id] = s
	return id, s, true
}

// firstUnused finds the nearest transaction id not present in used, starting
// from start: scan upward first, then downward, each wrapping through the
// full 32-bit space at most once.
func firstUnused(used map[int32]*slot, start int32) (int32, bool) {
	if _, ok := used[start]; !ok {
		return start, true
	}

	id := start
	for i := 0; i < 1<<32-1; i++ {
		id++
		if _, ok := used[id]; !ok {
			return id, true
		}
	}

	id = start
	for i := 0; i < 1<<32-1; i++ {
		id--
		if _, ok := used[id]; !ok {
			return id, true
		}
	}

	return 0, false
}

// Lookup returns the slot registered for (addr, id), if any.
func (p *pendingTable) Lookup(addr string, id int32) (*slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.byAddr[addr]
	if !ok {
		return nil, false
	}
	s, ok := m[id]
	return s, ok
}

// Remove unregisters (addr, id), making it eligible for reuse. Removing a
// transaction id that is not registered is a no-op.
func (p *pendingTable) Remove(addr string, id int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.byAddr[addr]
	if !ok {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(p.byAddr, addr)
	}
}

// DrainAll removes every registered slot across every address and returns
// them, for use when the Manager is shutting down.
func (p *pendingTable) DrainAll() []*slot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var all []*slot
	for addr, m := range p.byAddr {
		for _, s := range m {
			all = append(all, s)
		}
		delete(p.byAddr, addr)
	}
	return all
}
