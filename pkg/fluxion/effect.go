package fluxion

import (
	"sync"
	"sync/atomic"
)

// Effect is a unit of work that re-runs when its dependencies change.
//
// The body runs once, synchronously, when the effect is created. Every
// tracked read during a run subscribes the effect to the value read; a
// later write to any of those values re-runs the body. Before each run the
// effect unsubscribes from everything it read last time, so a dependency
// read only in a branch that is no longer taken is dropped instead of
// lingering as a phantom subscription.
//
// A write performed inside the effect's own body to one of its own
// dependencies does not re-enter the body synchronously. The re-run is
// coalesced into at most one pending run executed after the current run
// completes, so convergent self-referential updates terminate.
type Effect struct {
	id   uint64
	name string

	// fn is the effect body. It may return a Cleanup that runs before
	// the next run and when the effect stops.
	fn func() Cleanup

	// cleanup is the Cleanup from the last run, if any.
	cleanup Cleanup

	// sources are the dependency nodes this effect subscribed to during
	// its last run.
	sources   []*dep
	sourcesMu sync.Mutex

	// running is set while the body executes; a trigger arriving during
	// the run sets pending instead of re-entering.
	running atomic.Bool
	pending atomic.Bool

	stopped atomic.Bool
}

// EffectOption configures an Effect at creation.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) isEffectOption()       {}
func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// WithName labels the effect for panic reports and metrics.
func WithName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// NewEffect creates an effect and runs its body once, synchronously.
// If an ambient Collector is set (a Scope body is running), the effect's
// Stop is registered with it, so disposing the scope stops the effect.
func NewEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		id: nextID(),
		fn: fn,
	}

	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if c := currentCollector(); c != nil {
		c.Add(e.Stop)
	}

	e.run()

	return e
}

// MarkDirty schedules the effect to re-run. Implements Listener.
//
// Outside a batch the re-run happens synchronously, before MarkDirty
// returns. If the effect is mid-run (a self-triggering write), the re-run
// is deferred until the current run finishes.
func (e *Effect) MarkDirty() {
	if e.stopped.Load() {
		return
	}

	if e.running.Load() {
		e.pending.Store(true)
		return
	}

	e.run()
}

// ID returns the unique identifier for this effect. Implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Stop prevents all future re-runs and removes the effect from every
// subscriber list it appears in. The last run's cleanup, if any, runs now.
// Stop is idempotent.
func (e *Effect) Stop() {
	if e.stopped.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, src := range e.sources {
		src.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

// run executes the body, looping while self-triggered writes left a pending
// re-run behind. Termination relies on idempotent writes: once the update
// converges, no new trigger fires and pending stays false.
func (e *Effect) run() {
	if e.running.Swap(true) {
		e.pending.Store(true)
		return
	}
	defer e.running.Store(false)

	for {
		e.pending.Store(false)
		e.runOnce()
		if e.stopped.Load() || !e.pending.Load() {
			return
		}
	}
}

// runOnce is one tracked execution: drop stale subscriptions, install the
// effect as the current listener, run the body, restore.
func (e *Effect) runOnce() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, src := range e.sources {
		src.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	countEffectRun()

	old := swapListener(e)
	defer swapListener(old)
	defer func() {
		// A panicking body must not corrupt bookkeeping for other
		// effects; the subscriptions recorded before the panic stay
		// valid for the next trigger.
		if r := recover(); r != nil {
			countEffectPanic()
			logger().Error("effect body panicked",
				"effect", e.name, "id", e.id, "panic", r)
		}
	}()

	e.cleanup = e.fn()
}

// addSource records a dependency node read during the current run.
// Implements sourceTracker.
func (e *Effect) addSource(d *dep) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == d {
			return
		}
	}
	e.sources = append(e.sources, d)
}

// OnChange creates an effect that skips its callback on the first run.
// deps establishes the tracked reads; fn runs only on subsequent changes.
func OnChange(deps func(), fn func()) *Effect {
	first := true
	return NewEffect(func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		fn()
		return nil
	})
}
