// Package workerpool provides a persistent pool of goroutines that splits
// row ranges of an image across workers. A Pool is created once and reused
// for every transform instead of spawning goroutines per call.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelFor(buf.Height(), func(start, end int) {
//	    for y := start; y < end; y++ {
//	        processRow(buf.Row(y))
//	    }
//	})
package workerpool

import (
	"runtime"
	"sync"
)

// Pool is a persistent worker pool. A nil *Pool is valid and runs work on
// the calling goroutine.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once

	// mu is held for reading while work is dispatched and for writing
	// while workC is closed.
	mu     sync.RWMutex
	closed bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New spawns numWorkers workers. If numWorkers <= 0, GOMAXPROCS is used.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns a process-wide pool sized to GOMAXPROCS. It is never closed.
func Shared() *Pool {
	sharedOnce.Do(func() {
		shared = New(0)
	})
	return shared
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers, or 1 for a nil pool.
func (p *Pool) NumWorkers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

// Close shuts the pool down. It waits for in-flight dispatches, so pending
// work completes and later ParallelFor calls run sequentially. Safe to call
// twice and concurrently with ParallelFor.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.closed = true
		close(p.workC)
	})
}

// ParallelFor splits [0, n) into contiguous ranges, one per worker, and
// blocks until fn has returned for all of them. Ranges never overlap.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	if p == nil {
		fn(0, n)
		return
	}

	workers := min(p.numWorkers, n)
	if workers == 1 {
		fn(0, n)
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			wg.Done()
			continue
		}

		p.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
	}
	p.mu.RUnlock()

	wg.Wait()
}
