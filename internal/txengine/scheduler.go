// Package txengine is the generic deadline-heap scheduler behind
// spec.md §4.2's transmission engine: "a priority queue of deadlines
// (min-heap keyed by next_deadline)... The thread sleeps until the
// earliest deadline, advances that [line]'s state machine,... computes
// the next deadline, and reinserts."
//
// It is a direct extraction of the teacher's core.Poller (container/heap
// min-heap, a wake channel, one reused time.Timer, Upsert/Stop/Fix) with
// the GPIO-specific advance logic — pulse/PWM/servo/wave semantics —
// left to the caller. That separation is what lets internal/gpiochip use
// this scheduler without txengine importing anything GPIO-shaped, which
// in turn is what keeps internal/gpiochip → internal/txengine a one-way
// dependency.
package txengine

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// AdvanceFunc advances whatever state machine owns id at the given
// deadline. It returns the next deadline and whether to re-arm; rearm
// false removes id from the schedule (the state machine finished or was
// cancelled).
type AdvanceFunc func(id uint64, deadline time.Time) (next time.Time, rearm bool)

type item struct {
	id    uint64
	due   time.Time
	index int
}

type itemHeap []*item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *itemHeap) Push(x any)         { it := x.(*item); it.index = len(*h); *h = append(*h, it) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Scheduler runs one goroutine (started by Run) advancing whichever
// registered id has the earliest deadline.
type Scheduler struct {
	mu      sync.Mutex
	wake    chan struct{}
	items   map[uint64]*item
	h       itemHeap
	advance AdvanceFunc
}

func New(advance AdvanceFunc) *Scheduler {
	return &Scheduler{
		wake:    make(chan struct{}, 1),
		items:   make(map[uint64]*item),
		advance: advance,
	}
}

// Arm (re)schedules id for deadline at and wakes the engine so it
// recomputes its wait against the new earliest deadline — spec.md §4.2's
// "Suspension points" contract ("a wake flag is set when any LCB's
// earliest deadline is advanced sooner than currently scheduled").
func (s *Scheduler) Arm(id uint64, at time.Time) {
	s.mu.Lock()
	if it, ok := s.items[id]; ok {
		it.due = at
		heap.Fix(&s.h, it.index)
	} else {
		it := &item{id: id, due: at}
		s.items[id] = it
		heap.Push(&s.h, it)
	}
	s.mu.Unlock()
	s.wakeup()
}

// Disarm removes id from the schedule (used by free/cancel).
func (s *Scheduler) Disarm(id uint64) {
	s.mu.Lock()
	if it, ok := s.items[id]; ok {
		heap.Remove(&s.h, it.index)
		delete(s.items, id)
	}
	s.mu.Unlock()
	s.wakeup()
}

// Armed reports whether id currently has a pending deadline.
func (s *Scheduler) Armed(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

func (s *Scheduler) wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.h) == 0 {
		return -1
	}
	d := time.Until(s.h[0].due)
	if d < 0 {
		return 0
	}
	return d
}

// Run blocks, advancing due items, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		wait := s.nextWait()
		switch {
		case wait < 0:
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		case wait == 0:
			// fall through to fire below
		default:
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				if !timer.Stop() {
					<-timer.C
				}
				continue
			case <-timer.C:
			}
		}

		s.mu.Lock()
		var due *item
		now := time.Now()
		if len(s.h) > 0 && !s.h[0].due.After(now) {
			due = heap.Pop(&s.h).(*item)
			delete(s.items, due.id)
		}
		s.mu.Unlock()

		if due == nil {
			continue
		}
		next, rearm := s.advance(due.id, due.due)
		if rearm {
			s.Arm(due.id, next)
		}
	}
}
