package fluxion

import (
	"sync"
	"sync/atomic"
)

// Computed is a cached derived value. Invalidation is pull-based: when a
// dependency changes, the cache is only marked stale; the read function
// runs again on the next Get. A computed nobody reads does no work no
// matter how often its inputs change, and chains of computed values
// propagate staleness without recomputing layers that are never read.
type Computed[T any] struct {
	node dep

	// compute produces the value. Runs under tracked-read context so the
	// computed subscribes to whatever it reads.
	compute func() T

	// value is the cached result.
	value   T
	valueMu sync.RWMutex

	// valid reports whether the cache is current. When false, the next
	// Get recomputes.
	valid atomic.Bool

	// sources are the dependency nodes read during the last computation.
	sources   []*dep
	sourcesMu sync.Mutex

	// equal decides whether a recompute produced a new value. If nil,
	// default equality is used.
	equal func(T, T) bool

	// computing guards against a computed reading itself.
	computing atomic.Bool
}

// NewComputed creates a computed value. The read function does not run
// until the first Get.
func NewComputed[T any](compute func() T) *Computed[T] {
	return &Computed[T]{
		node:    dep{id: nextID()},
		compute: compute,
	}
}

// Get returns the value, recomputing it first if a dependency changed since
// the last read. Subscribes the current listener to this computed.
func (c *Computed[T]) Get() T {
	c.node.track()

	if !c.valid.Load() {
		c.recompute()
	}

	c.valueMu.RLock()
	value := c.value
	c.valueMu.RUnlock()
	return value
}

// Peek returns the value without subscribing. Still recomputes if stale.
func (c *Computed[T]) Peek() T {
	if !c.valid.Load() {
		c.recompute()
	}
	c.valueMu.RLock()
	value := c.value
	c.valueMu.RUnlock()
	return value
}

// MarkDirty invalidates the cache and propagates staleness downstream
// without recomputing. Implements Listener.
func (c *Computed[T]) MarkDirty() {
	if c.valid.CompareAndSwap(true, false) {
		c.node.notify()
	}
}

// ID returns the unique identifier for this computed. Implements Listener.
func (c *Computed[T]) ID() uint64 {
	return c.node.id
}

// addSource records a dependency node read during computation.
// Implements sourceTracker.
func (c *Computed[T]) addSource(d *dep) {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()

	for _, s := range c.sources {
		if s == d {
			return
		}
	}
	c.sources = append(c.sources, d)
}

// WithEquals configures a custom equality function. When a recompute
// produces a value equal to the cached one, the cached value is kept, so
// dependents comparing old against new observe no change.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

func (c *Computed[T]) recompute() {
	if c.computing.Swap(true) {
		// Circular read: return the stale cache rather than recurse.
		return
	}
	defer c.computing.Store(false)

	c.sourcesMu.Lock()
	for _, src := range c.sources {
		src.unsubscribe(c)
	}
	c.sources = c.sources[:0]
	c.sourcesMu.Unlock()

	countComputedRun()

	// The listener must be restored even when the read function panics;
	// a leaked listener would subscribe this computed to every later
	// top-level read on the goroutine. On panic the cache stays invalid
	// and the next read retries.
	old := swapListener(c)
	defer swapListener(old)
	defer func() {
		if r := recover(); r != nil {
			logger().Error("computed read function panicked",
				"id", c.node.id, "panic", r)
		}
	}()

	newValue := c.compute()

	c.valueMu.Lock()
	if !c.equals(c.value, newValue) {
		c.value = newValue
	}
	c.valueMu.Unlock()

	c.valid.Store(true)
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

// Ensure Computed satisfies the source-tracking listener contract.
var _ sourceTracker = (*Computed[int])(nil)
var _ sourceTracker = (*Effect)(nil)
