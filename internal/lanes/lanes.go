// Package lanes implements the engine's thread-per-core worker model:
// MAX_LANES goroutines, each locked to an OS thread, entering one shared
// entry point and coordinating only via a barrier.
package lanes

import (
	"runtime"
	"sync"
)

// Count is the fixed number of lanes the source uses (MAX_LANES). The
// barrier below tolerates any N >= 1; this constant is only the default
// the runtime spawns.
const Count = 4

// Barrier is a reusable two-sided rendezvous: every lane blocks in Wait
// until all N lanes have called it, including the final iteration before
// a lane observes quit and exits — no lane is left spinning past the
// barrier its siblings already cleared.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	arrived    int
	generation uint64
}

// NewBarrier creates a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the calling lane until all n lanes have called Wait for the
// current generation, then releases all of them together.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Range returns the half-open [lo, hi) partition of [0, total) that lane
// idx owns when total is split evenly across n lanes, remainder going to
// the low-index lanes.
func Range(idx, n, total int) (lo, hi int) {
	base := total / n
	rem := total % n
	lo = idx*base + min(idx, rem)
	hi = lo + base
	if idx < rem {
		hi++
	}
	return lo, hi
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Runtime owns the barrier and the cooperative quit flag shared by every
// lane. Only lane 0 is permitted to set Quit or perform I/O (Vulkan,
// window, module calls); other lanes only ever call Barrier.Wait.
type Runtime struct {
	N       int
	barrier *Barrier

	mu   sync.Mutex
	quit bool
}

// New constructs a lane runtime with n lanes (Count if n <= 0).
func New(n int) *Runtime {
	if n <= 0 {
		n = Count
	}
	return &Runtime{N: n, barrier: NewBarrier(n)}
}

// Quit reports whether lane 0 has requested shutdown. Safe to call from
// any lane; lanes only observe this after a Sync() call, per the
// cooperative-cancellation contract.
func (r *Runtime) Quit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quit
}

// RequestQuit is called by lane 0 to signal every lane to exit at the
// next barrier. It must be followed by a Sync() call before lane 0 itself
// returns, so all lanes observe the flag in the same iteration.
func (r *Runtime) RequestQuit() {
	r.mu.Lock()
	r.quit = true
	r.mu.Unlock()
}

// Sync blocks the calling lane until every lane has reached this point.
func (r *Runtime) Sync() {
	r.barrier.Wait()
}

// Run spawns r.N-1 idle lanes (1..N-1) that do nothing but barrier, plus
// runs body on lane 0 (the calling goroutine). body is called once; it is
// responsible for looping internally and calling Sync() at each phase
// boundary, and for calling RequestQuit()+Sync() before returning.
func (r *Runtime) Run(body func(rt *Runtime)) {
	var wg sync.WaitGroup
	for i := 1; i < r.N; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			for {
				r.Sync()
				if r.Quit() {
					return
				}
			}
		}(i)
	}

	runtime.LockOSThread()
	body(r)
	runtime.UnlockOSThread()

	wg.Wait()
}
