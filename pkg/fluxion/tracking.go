package fluxion

import (
	"sync"

	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for one goroutine. Each goroutine
// has its own context, so concurrent graphs never share the active-listener
// slot.
type trackingContext struct {
	// currentListener is what is currently tracking dependencies.
	// nil means reads do not create subscriptions.
	currentListener Listener

	// currentCollector receives the stop functions of effects created
	// while a Scope body is running.
	currentCollector *Collector

	// batchDepth tracks nested Batch calls. When > 0, notifications are
	// queued instead of fired immediately.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the outermost
	// batch closes. Deduplicated by ID before notification.
	pendingUpdates []Listener
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map // int64 -> *trackingContext

func getTrackingContext() *trackingContext {
	gid := goid.Get()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// currentListener returns the listener currently tracking reads, or nil.
func currentListener() Listener {
	return getTrackingContext().currentListener
}

// swapListener installs l as the current listener and returns the previous
// one so it can be restored after a nested tracked run.
func swapListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

func currentCollector() *Collector {
	return getTrackingContext().currentCollector
}

func swapCollector(c *Collector) *Collector {
	ctx := getTrackingContext()
	old := ctx.currentCollector
	ctx.currentCollector = c
	return old
}

func batchDepth() int {
	return getTrackingContext().batchDepth
}

func incBatchDepth() {
	getTrackingContext().batchDepth++
}

// decBatchDepth decreases the batch depth and reports whether the outermost
// batch just closed.
func decBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

// WithListener runs fn with l installed as the tracking listener.
// Reads performed by fn subscribe l to the values read.
func WithListener(l Listener, fn func()) {
	old := swapListener(l)
	defer swapListener(old)
	fn()
}

// WithCollector runs fn with c as the ambient collector. Effects created by
// fn register their stop functions with c.
func WithCollector(c *Collector, fn func()) {
	old := swapCollector(c)
	defer swapCollector(old)
	fn()
}

// ReleaseGoroutineState removes the tracking context for the calling
// goroutine. Optional; contexts are small and are reused when goroutine IDs
// are recycled, but long-running programs that spin up many short-lived
// goroutines doing reactive work can call this before the goroutine exits.
func ReleaseGoroutineState() {
	trackingContexts.Delete(goid.Get())
}
