// Package concurrency bounds how many extraction operations run at once.
package concurrency

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Slots is a counting admission gate with a fixed ceiling. Acquire suspends
// until capacity frees; waiters wake in FIFO order, so no acquirer starves as
// long as releases keep happening. One Slots instance is shared process-wide.
type Slots struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
	onChange func(inFlight int64)
}

type SlotsOption func(*Slots)

// WithGauge registers a callback invoked with the in-flight count after every
// acquire and release. Used to drive the extraction in-flight metric.
func WithGauge(fn func(inFlight int64)) SlotsOption {
	return func(s *Slots) { s.onChange = fn }
}

func NewSlots(maxConcurrent int, opts ...SlotsOption) *Slots {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	s := &Slots{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: int64(maxConcurrent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Slots) Capacity() int64 { return s.capacity }

// Acquire blocks until a slot frees or ctx ends.
func (s *Slots) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := s.inFlight.Add(1)
	if s.onChange != nil {
		s.onChange(n)
	}
	return nil
}

// Release returns a slot and wakes the longest-waiting acquirer.
func (s *Slots) Release() {
	n := s.inFlight.Add(-1)
	if s.onChange != nil {
		s.onChange(n)
	}
	s.sem.Release(1)
}

// InFlight reports the current number of held slots.
func (s *Slots) InFlight() int64 { return s.inFlight.Load() }
