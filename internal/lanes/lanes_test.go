package lanes

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRangeEvenSplit(t *testing.T) {
	lo, hi := Range(0, 4, 8)
	if lo != 0 || hi != 2 {
		t.Fatalf("lane 0: got [%d,%d), want [0,2)", lo, hi)
	}
	lo, hi = Range(3, 4, 8)
	if lo != 6 || hi != 8 {
		t.Fatalf("lane 3: got [%d,%d), want [6,8)", lo, hi)
	}
}

func TestRangeRemainderToLowLanes(t *testing.T) {
	// 10 items over 4 lanes: 3,3,2,2
	lo, hi := Range(0, 4, 10)
	if hi-lo != 3 || lo != 0 {
		t.Fatalf("lane 0: got [%d,%d)", lo, hi)
	}
	lo, hi = Range(1, 4, 10)
	if hi-lo != 3 || lo != 3 {
		t.Fatalf("lane 1: got [%d,%d)", lo, hi)
	}
	lo, hi = Range(2, 4, 10)
	if hi-lo != 2 || lo != 6 {
		t.Fatalf("lane 2: got [%d,%d)", lo, hi)
	}
	lo, hi = Range(3, 4, 10)
	if hi-lo != 2 || lo != 8 {
		t.Fatalf("lane 3: got [%d,%d)", lo, hi)
	}
}

func TestBarrierReleasesAllArrivals(t *testing.T) {
	b := NewBarrier(4)
	var arrivedBefore, arrivedAfter int32
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			atomic.AddInt32(&arrivedBefore, 1)
			b.Wait()
			atomic.AddInt32(&arrivedAfter, 1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("barrier did not release all waiters")
		}
	}
	if atomic.LoadInt32(&arrivedAfter) != 4 {
		t.Fatalf("expected all 4 lanes past the barrier, got %d", arrivedAfter)
	}
}

func TestRuntimeQuitStopsAllLanes(t *testing.T) {
	rt := New(4)
	iterations := 0
	rt.Run(func(r *Runtime) {
		for iterations < 3 {
			iterations++
			r.Sync()
		}
		r.RequestQuit()
		r.Sync()
	})
	if iterations != 3 {
		t.Fatalf("expected 3 iterations, got %d", iterations)
	}
	if !rt.Quit() {
		t.Fatal("expected quit to be observed after Run returns")
	}
}
