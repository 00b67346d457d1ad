// Package limiter bounds the number of concurrently running external processes.
package limiter

import (
	"context"
	"runtime"
	"sync/atomic"

	"fortio.org/safecast"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/semaphore"
)

// DefaultCapacity returns the host's logical core count, at least 1.
func DefaultCapacity() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Gate is a counting admission gate. Acquire blocks (without spinning) until
// a slot is free; every successful Acquire must be paired with one Release.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	peak     atomic.Int64
	admitted atomic.Int64
}

// New returns a gate with n slots; n < 1 selects DefaultCapacity.
func New(n int) *Gate {
	if n < 1 {
		n = DefaultCapacity()
	}
	weight, err := safecast.Conv[int64](n)
	if err != nil {
		weight = 1
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(weight), capacity: n}
}

// Acquire waits for a slot or for ctx to end.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	cur := g.inFlight.Add(1)
	g.admitted.Add(1)
	for {
		peak := g.peak.Load()
		if cur <= peak || g.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Capacity returns the number of slots.
func (g *Gate) Capacity() int { return g.capacity }

// InFlight returns the number of currently held slots.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }

// Peak returns the highest number of simultaneously held slots observed.
func (g *Gate) Peak() int { return int(g.peak.Load()) }

// Admitted returns how many acquisitions have succeeded.
func (g *Gate) Admitted() int { return int(g.admitted.Load()) }
