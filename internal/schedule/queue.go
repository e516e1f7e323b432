package schedule

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// entry is one region's pending refresh.
type entry struct {
	regionID string
	dueAt    time.Time
	index    int // index in the heap (for heap.Interface)
}

// refreshHeap is a min-heap of entries ordered by dueAt
type refreshHeap []*entry

func (h refreshHeap) Len() int { return len(h) }

func (h refreshHeap) Less(i, j int) bool {
	return h[i].dueAt.Before(h[j].dueAt)
}

func (h refreshHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *refreshHeap) Push(x interface{}) {
	n := len(*h)
	e := x.(*entry)
	e.index = n
	*h = append(*h, e)
}

func (h *refreshHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1   // for safety
	*h = old[0 : n-1]
	return e
}

// RefreshQueue orders region forecast refreshes by due time. There is no
// worker pool on purpose: the scrape target rate-limits hard, so a single
// consumer loop takes one region at a time and spaces its fetches.
type RefreshQueue struct {
	mu      sync.Mutex
	heap    refreshHeap
	entries map[string]*entry // for O(1) lookup by region
	wakeup  chan struct{}
}

// NewRefreshQueue creates an empty refresh queue
func NewRefreshQueue() *RefreshQueue {
	q := &RefreshQueue{
		heap:    make(refreshHeap, 0),
		entries: make(map[string]*entry),
		wakeup:  make(chan struct{}, 1),
	}
	heap.Init(&q.heap)
	return q
}

// Schedule sets the region's next refresh time, replacing any pending entry
// for the same region.
func (q *RefreshQueue) Schedule(regionID string, dueAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.entries[regionID]; ok {
		heap.Remove(&q.heap, existing.index)
		delete(q.entries, regionID)
	}

	e := &entry{regionID: regionID, dueAt: dueAt}
	heap.Push(&q.heap, e)
	q.entries[regionID] = e

	// Wake the consumer if this became the earliest entry
	if q.heap[0] == e {
		select {
		case q.wakeup <- struct{}{}:
		default:
		}
	}
}

// Cancel removes a pending refresh
func (q *RefreshQueue) Cancel(regionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[regionID]
	if !ok {
		return false
	}

	heap.Remove(&q.heap, e.index)
	delete(q.entries, regionID)
	return true
}

// Len returns the number of pending refreshes
func (q *RefreshQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Next blocks until the earliest entry comes due, pops it, and returns the
// region id. Returns false when ctx is cancelled.
func (q *RefreshQueue) Next(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()

		var waitDuration time.Duration
		if q.heap.Len() == 0 {
			// Nothing pending, wait for a Schedule call
			waitDuration = 24 * time.Hour
		} else {
			next := q.heap[0]
			waitDuration = time.Until(next.dueAt)

			if waitDuration <= 0 {
				e := heap.Pop(&q.heap).(*entry)
				delete(q.entries, e.regionID)
				q.mu.Unlock()
				return e.regionID, true
			}
		}

		q.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			// Re-check the head
		case <-q.wakeup:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return "", false
		}
	}
}
