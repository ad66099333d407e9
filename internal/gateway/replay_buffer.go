package gateway

import "sync"

// Replayed is one envelope kept for backfill.
type Replayed struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes of one channel in a ring.
// Sequence numbers are pushed in increasing order.
type ReplayBuffer struct {
	mu    sync.RWMutex
	ring  []Replayed
	start int // index of the oldest entry
	n     int
}

// NewReplayBuffer creates a buffer holding up to capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = replayCapacity
	}
	return &ReplayBuffer{ring: make([]Replayed, capacity)}
}

// Push appends a copy of data, evicting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := append([]byte(nil), data...)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.n < len(rb.ring) {
		rb.ring[(rb.start+rb.n)%len(rb.ring)] = Replayed{Seq: seq, Data: cp}
		rb.n++
		return
	}
	rb.ring[rb.start] = Replayed{Seq: seq, Data: cp}
	rb.start = (rb.start + 1) % len(rb.ring)
}

// Range returns entries with fromSeq <= seq <= toSeq, oldest first.
// A toSeq <= 0 means no upper bound.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []Replayed {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []Replayed
	for i := 0; i < rb.n; i++ {
		e := rb.ring[(rb.start+i)%len(rb.ring)]
		if e.Seq < fromSeq || (toSeq > 0 && e.Seq > toSeq) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Oldest returns the smallest retained sequence number, or 0 when empty.
func (rb *ReplayBuffer) Oldest() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.n == 0 {
		return 0
	}
	return rb.ring[rb.start].Seq
}

// Len returns the number of retained entries.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}
