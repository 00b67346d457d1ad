package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultCapacityPositive(t *testing.T) {
	if n := DefaultCapacity(); n < 1 {
		t.Fatalf("DefaultCapacity() = %d", n)
	}
	if g := New(0); g.Capacity() < 1 {
		t.Fatalf("New(0).Capacity() = %d", g.Capacity())
	}
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := New(2)
	var (
		wg      sync.WaitGroup
		current atomic.Int64
		maxSeen atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer g.Release()
			n := current.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()
	if maxSeen.Load() > 2 {
		t.Fatalf("observed %d concurrent holders, capacity 2", maxSeen.Load())
	}
	if g.Peak() > 2 || g.Peak() < 1 {
		t.Fatalf("Peak() = %d", g.Peak())
	}
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d after all releases", g.InFlight())
	}
	if g.Admitted() != 10 {
		t.Fatalf("Admitted() = %d, want 10", g.Admitted())
	}
}

func TestGateAcquireHonoursCancellation(t *testing.T) {
	g := New(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire on full gate = %v, want deadline exceeded", err)
	}
	g.Release()
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d", g.InFlight())
	}
}
