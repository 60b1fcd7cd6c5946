package usecase

import (
	"container/heap"
	"time"
)

// timerEntry is a pending fire. gen must match the record's current
// generation or the entry is stale and skipped.
type timerEntry struct {
	at  time.Time
	id  string
	gen uint64
}

type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].id < h[j].id
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(timerEntry)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// timerQueue is a min-heap of fire times with lazy cancellation
type timerQueue struct {
	entries timerHeap
	gens    map[string]uint64
	next    uint64
}

func newTimerQueue() *timerQueue {
	return &timerQueue{gens: make(map[string]uint64)}
}

// schedule replaces any pending timer of id
func (q *timerQueue) schedule(id string, at time.Time) {
	q.next++
	q.gens[id] = q.next
	heap.Push(&q.entries, timerEntry{at: at, id: id, gen: q.next})
}

// cancel voids the pending timer of id
func (q *timerQueue) cancel(id string) {
	delete(q.gens, id)
}

func (q *timerQueue) pending(id string) bool {
	_, ok := q.gens[id]
	return ok
}

// peek returns the earliest live entry, dropping stale ones
func (q *timerQueue) peek() (timerEntry, bool) {
	for len(q.entries) > 0 {
		e := q.entries[0]
		if gen, ok := q.gens[e.id]; ok && gen == e.gen {
			return e, true
		}
		heap.Pop(&q.entries)
	}
	return timerEntry{}, false
}

// popDue removes and returns the earliest live entry due at or before now
func (q *timerQueue) popDue(now time.Time) (timerEntry, bool) {
	e, ok := q.peek()
	if !ok || e.at.After(now) {
		return timerEntry{}, false
	}
	heap.Pop(&q.entries)
	delete(q.gens, e.id)
	return e, true
}
