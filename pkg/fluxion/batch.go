package fluxion

// Batch groups multiple writes into a single notification phase. All
// triggers raised while the batch is open are queued, deduplicated by
// listener identity, and delivered once when the outermost batch closes:
// N writes touching the same dependent cause one re-run, not N.
//
// Batches nest; notifications fire only when the outermost batch completes.
//
//	fluxion.Batch(func() {
//	    first.Set("John")
//	    last.Set("Doe")
//	    age.Set(30)
//	})
//	// dependents of all three run once here
func Batch(fn func()) {
	incBatchDepth()

	defer func() {
		if decBatchDepth() {
			flushPendingUpdates()
		}
	}()

	fn()
}

// flushPendingUpdates deduplicates and notifies all queued listeners.
func flushPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	unique := make([]Listener, 0, len(updates))

	for _, l := range updates {
		id := l.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, l)
		}
	}

	observeBatchFlush(len(unique))

	for _, l := range unique {
		l.MarkDirty()
	}
}

// Untracked runs fn without recording reads as dependencies. Useful when an
// effect needs a value without subscribing to it. For a single read,
// Peek on the signal is clearer.
func Untracked(fn func()) {
	old := swapListener(nil)
	defer swapListener(old)
	fn()
}

// UntrackedGet reads a signal without creating a dependency.
// Equivalent to s.Peek().
func UntrackedGet[T any](s *Signal[T]) T {
	return s.Peek()
}

// Tx runs fn as a transaction. Alias for Batch, for call sites where the
// writes form one logical state change.
func Tx(fn func()) {
	Batch(fn)
}
