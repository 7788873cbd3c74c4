package client

import (
	"container/heap"
	"sync"
	"time"
)

// Loop is the client's cooperative scheduler. It owns the current time
// and a queue of pending timer callbacks; time only moves when Advance or
// AdvanceTo is called, which makes debounce and throttle behavior fully
// deterministic under test. A production driver advances the loop to
// wall-clock time on a ticker.
type Loop struct {
	mu     sync.Mutex
	now    time.Time
	timers timerHeap
	seq    uint64
}

// NewLoop creates a loop whose clock starts at start.
func NewLoop(start time.Time) *Loop {
	return &Loop{now: start}
}

// Now returns the loop's current time.
func (l *Loop) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Schedule queues fn to run d after the loop's current time. A
// non-positive d runs fn on the next Advance. The returned Timer cancels
// the callback via Stop.
func (l *Loop) Schedule(d time.Duration, fn func()) *Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d < 0 {
		d = 0
	}
	l.seq++
	entry := &timerEntry{when: l.now.Add(d), seq: l.seq, fn: fn}
	heap.Push(&l.timers, entry)
	return &Timer{loop: l, entry: entry}
}

// Advance moves the clock forward by d, firing due timers in time order.
func (l *Loop) Advance(d time.Duration) {
	l.AdvanceTo(l.Now().Add(d))
}

// AdvanceTo moves the clock to target, firing due timers in time order.
// Each callback sees Now() equal to its scheduled time, and callbacks may
// schedule further timers, which fire in the same call if due.
func (l *Loop) AdvanceTo(target time.Time) {
	for {
		l.mu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(target) {
			if target.After(l.now) {
				l.now = target
			}
			l.mu.Unlock()
			return
		}
		entry := heap.Pop(&l.timers).(*timerEntry)
		if entry.when.After(l.now) {
			l.now = entry.when
		}
		l.mu.Unlock()

		if !entry.stopped {
			entry.fn()
		}
	}
}

// Pending reports the number of scheduled, unstopped timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, entry := range l.timers {
		if !entry.stopped {
			n++
		}
	}
	return n
}

// Timer is a handle to a scheduled callback.
type Timer struct {
	loop  *Loop
	entry *timerEntry
}

// Stop cancels the callback if it has not fired. Safe to call more than
// once.
func (t *Timer) Stop() {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	t.entry.stopped = true
}

type timerEntry struct {
	when    time.Time
	seq     uint64 // ties break in scheduling order
	fn      func()
	stopped bool
	index   int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if !h[i].when.Equal(h[j].when) {
		return h[i].when.Before(h[j].when)
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	entry := x.(*timerEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
