package fluxion

// Listener is anything that can be notified when a dependency changes.
// Effects re-run, computed values invalidate their cache.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication in subscriber lists and batch queues.
	ID() uint64
}

// Cleanup is a function returned by effect bodies to release resources.
// It runs before the effect re-runs and when the effect is stopped.
type Cleanup func()

// sourceTracker is implemented by listeners that remember which dependency
// nodes they subscribed to, so stale subscriptions can be dropped before
// every re-run.
type sourceTracker interface {
	Listener
	addSource(d *dep)
}
