package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlotsBoundConcurrentHolders(t *testing.T) {
	var peak atomic.Int64
	slots := NewSlots(2, WithGauge(func(inFlight int64) {
		for {
			current := peak.Load()
			if inFlight <= current || peak.CompareAndSwap(current, inFlight) {
				return
			}
		}
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := slots.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			time.Sleep(20 * time.Millisecond)
			slots.Release()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Fatalf("concurrency ceiling violated: peak %d holders", got)
	}
	if slots.InFlight() != 0 {
		t.Fatalf("expected all slots returned, in flight %d", slots.InFlight())
	}
}

func TestSlotsAcquireHonorsContextCancellation(t *testing.T) {
	slots := NewSlots(1)
	if err := slots.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer slots.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := slots.Acquire(ctx); err == nil {
		t.Fatalf("expected context error while gate is saturated")
	}
	if slots.InFlight() != 1 {
		t.Fatalf("failed acquire must not consume a slot, in flight %d", slots.InFlight())
	}
}

func TestSlotsWakesWaiterOnRelease(t *testing.T) {
	slots := NewSlots(1)
	if err := slots.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := slots.Acquire(context.Background()); err != nil {
			t.Errorf("waiter Acquire() error = %v", err)
			return
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("waiter must suspend while the slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	slots.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("release did not wake the suspended waiter")
	}
	slots.Release()
}
