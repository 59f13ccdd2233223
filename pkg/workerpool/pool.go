// Package workerpool runs background work on a fixed set of goroutines.
// The event dispatcher uses it so a burst of placed orders cannot spawn an
// unbounded number of listener goroutines.
//
//	pool := workerpool.New(8)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    task() // run inline instead
//	}
package workerpool

import (
	"errors"
	"sync"
)

var (
	// ErrPoolFull is returned by Submit when every worker is busy and the
	// queue is at capacity.
	ErrPoolFull = errors.New("workerpool: pool is full")
	// ErrPoolClosed is returned once Shutdown has started.
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded goroutine pool with a queue twice its size.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
	panics func(any)
}

// New starts size workers. size below 1 is treated as 1. onPanic, when
// given, receives the value of any task that panics.
func New(size int, onPanic ...func(any)) *Pool {
	size = max(size, 1)
	p := &Pool{tasks: make(chan func(), size*2)}
	if len(onPanic) > 0 {
		p.panics = onPanic[0]
	}
	p.wg.Add(size)
	for range size {
		go p.worker()
	}
	return p
}

// Submit queues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. It
// is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && p.panics != nil {
			p.panics(r)
		}
	}()
	task()
}
