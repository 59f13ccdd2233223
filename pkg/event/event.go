// Package event is an in-process dispatcher for domain events such as
// order.placed. Listeners run after the emitting operation has committed;
// a failing or slow listener never affects the caller's result.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/zepto/pkg/logger"
	"github.com/shashiranjanraj/zepto/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Dispatcher fans events out to registered listeners.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	pool     *workerpool.Pool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers runs FireAsync listeners on n pooled goroutines instead of
// one goroutine per listener. Call Close to stop the pool.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.pool = workerpool.New(n, func(r any) {
			logger.Error("event listener panicked", "error", fmt.Sprint(r))
		})
	}
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string][]Handler)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Listen registers handler for name.
func (d *Dispatcher) Listen(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

func (d *Dispatcher) snapshot(name string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Handler(nil), d.handlers[name]...)
}

// Fire runs every listener for name in registration order.
func (d *Dispatcher) Fire(ctx context.Context, name string, payload any) {
	for _, h := range d.snapshot(name) {
		d.call(ctx, name, h, payload)
	}
}

// FireAsync runs every listener for name in the background. The request
// context is detached so listeners outlive the request; Wait blocks until
// they finish. With a worker pool, a listener that finds the pool full or
// closed runs inline.
func (d *Dispatcher) FireAsync(ctx context.Context, name string, payload any) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range d.snapshot(name) {
		d.wg.Add(1)
		task := func() {
			defer d.wg.Done()
			d.call(ctx, name, h, payload)
		}
		if d.pool == nil {
			go task()
			continue
		}
		if err := d.pool.Submit(task); err != nil {
			logger.WithCtx(ctx).Debug("event: running listener inline", "event", name, "reason", err)
			task()
		}
	}
}

// Wait blocks until every FireAsync listener has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Close waits for pending listeners and stops the worker pool, if any.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	if d.pool != nil {
		d.pool.Shutdown()
	}
}

// Flush removes all listeners.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[string][]Handler)
}

func (d *Dispatcher) call(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event listener panicked", "event", name, "error", fmt.Sprint(r))
		}
	}()
	h(ctx, payload)
}
