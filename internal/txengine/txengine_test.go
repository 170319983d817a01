package txengine

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestArmDisarm(t *testing.T) {
	s := New(func(id uint64, due time.Time) (time.Time, bool) { return time.Time{}, false })
	s.Arm(1, time.Now().Add(time.Hour))
	if !s.Armed(1) {
		t.Fatal("expected id 1 to be armed")
	}
	s.Disarm(1)
	if s.Armed(1) {
		t.Fatal("expected id 1 to be disarmed")
	}
}

func TestRunFiresEarliestDeadlineFirst(t *testing.T) {
	var mu sync.Mutex
	var order []uint64

	done := make(chan struct{})
	s := New(func(id uint64, due time.Time) (time.Time, bool) {
		mu.Lock()
		order = append(order, id)
		n := len(order)
		mu.Unlock()
		if n == 2 {
			close(done)
		}
		return time.Time{}, false
	})

	now := time.Now()
	s.Arm(2, now.Add(40*time.Millisecond))
	s.Arm(1, now.Add(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for both deadlines to fire")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected [1 2] firing order, got %v", order)
	}
}

func TestRunRearmsPeriodicItem(t *testing.T) {
	var mu sync.Mutex
	count := 0
	done := make(chan struct{})

	s := New(func(id uint64, due time.Time) (time.Time, bool) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n >= 3 {
			close(done)
			return time.Time{}, false
		}
		return due.Add(2 * time.Millisecond), true
	})

	s.Arm(9, time.Now().Add(2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for periodic rearm to fire 3 times")
	}
}

func TestDisarmPreventsFiring(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := New(func(id uint64, due time.Time) (time.Time, bool) {
		fired <- struct{}{}
		return time.Time{}, false
	})

	s.Arm(1, time.Now().Add(20*time.Millisecond))
	s.Disarm(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-fired:
		t.Fatal("disarmed item should not fire")
	case <-time.After(60 * time.Millisecond):
	}
}
