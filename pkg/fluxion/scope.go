package fluxion

import "sync"

// Collector is an ordered registry of teardown callbacks disposed together
// by one Cleanup call. Watchers, effects, timers, and listeners register
// their stop functions here so nothing leaks when a feature is torn down.
type Collector struct {
	mu        sync.Mutex
	teardowns []func()
	disposed  bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add registers a teardown callback. Returns false, with a logged warning,
// if the collector is already disposed: late additions are rejected, never
// silently queued. Nil callbacks are ignored.
func (c *Collector) Add(fn func()) bool {
	if fn == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		logger().Warn("collector: add after dispose rejected")
		return false
	}

	c.teardowns = append(c.teardowns, fn)
	return true
}

// Size returns the number of registered teardowns. Zero after disposal.
func (c *Collector) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.teardowns)
}

// Disposed reports whether Cleanup has run.
func (c *Collector) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Cleanup disposes the collector: the disposed flag is set before any
// teardown runs (a teardown calling Add or Cleanup observes the disposed
// state), then every callback runs in insertion order. Each callback is
// isolated; one panicking teardown does not stop the rest. Idempotent: a
// second call does nothing.
func (c *Collector) Cleanup() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	teardowns := c.teardowns
	c.teardowns = nil
	c.mu.Unlock()

	for _, fn := range teardowns {
		runTeardown(fn)
	}
}

func runTeardown(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger().Error("collector: teardown panicked", "panic", r)
		}
	}()
	fn()
}

// Scope runs fn with a fresh collector and returns its bound Cleanup as the
// disposer. fn receives the collector's Add for registering teardowns, and
// the collector is also installed as the ambient one, so effects created
// inside fn are stopped on dispose.
//
//	dispose := fluxion.Scope(func(collect func(func())) {
//	    collect(listener.Close)
//	    fluxion.NewEffect(render)
//	})
//	defer dispose()
func Scope(fn func(collect func(func()))) (dispose func()) {
	c := NewCollector()

	WithCollector(c, func() {
		fn(func(teardown func()) {
			c.Add(teardown)
		})
	})

	return c.Cleanup
}
