package fluxion

import "sync"

// List is a reactive slice. Each index has its own lazily created
// dependency node; a synthetic length node covers Len, and a version node
// covers whole-content reads via Values. Length-mutating operations (Push,
// Pop, Splice) notify the length node and every affected index node inside
// one batch, so a dependent touching several of them runs once.
type List struct {
	mu    sync.RWMutex
	items []any

	// deps holds per-index dependency nodes, created on first track.
	deps map[int]*dep

	// length is the synthetic node for the element count.
	length *dep

	// version is the synthetic node for any content change; Values
	// tracks it.
	version *dep

	// children memoizes wrapped nested containers by index.
	children map[int]any
}

// NewList wraps the given slice. The list takes ownership; nil means empty.
func NewList(initial []any) *List {
	return &List{
		items:    initial,
		deps:     make(map[int]*dep),
		length:   newDep(),
		version:  newDep(),
		children: make(map[int]any),
	}
}

// Index returns the element at i, subscribing the current listener to that
// index. Out-of-range reads track and return nil, so the listener re-runs
// if the list later grows to cover i. Nested records and slices come back
// wrapped, as in Store.Get.
func (l *List) Index(i int) any {
	if i < 0 {
		return nil
	}
	l.indexDep(i).track()

	l.mu.Lock()
	defer l.mu.Unlock()

	if i >= len(l.items) {
		return nil
	}
	if child, ok := l.children[i]; ok {
		return child
	}

	switch nested := l.items[i].(type) {
	case map[string]any:
		child := NewStore(nested)
		l.children[i] = child
		return child
	case []any:
		child := NewList(nested)
		l.children[i] = child
		return child
	default:
		return l.items[i]
	}
}

// SetIndex replaces the element at i. Writing an equal value is free.
// Setting past the end grows the list with nils, which also notifies the
// length node.
func (l *List) SetIndex(i int, value any) {
	if i < 0 {
		return
	}

	l.mu.Lock()
	grew := false
	for i >= len(l.items) {
		l.items = append(l.items, nil)
		grew = true
	}
	if !grew && anyEqual(l.items[i], value) {
		l.mu.Unlock()
		return
	}
	l.items[i] = value
	delete(l.children, i)
	d := l.indexDepLocked(i)
	l.mu.Unlock()

	Batch(func() {
		d.notify()
		l.version.notify()
		if grew {
			l.length.notify()
		}
	})
}

// Len returns the element count, subscribing the current listener to
// length changes.
func (l *List) Len() int {
	l.length.track()

	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Values returns a copy of the elements, subscribing the current listener
// to any content change.
func (l *List) Values() []any {
	l.version.track()

	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Push appends values, notifying the length node and each new index node
// in one batch.
func (l *List) Push(values ...any) {
	if len(values) == 0 {
		return
	}

	l.mu.Lock()
	start := len(l.items)
	l.items = append(l.items, values...)
	touched := l.depsInRangeLocked(start, len(l.items))
	l.mu.Unlock()

	Batch(func() {
		for _, d := range touched {
			d.notify()
		}
		l.length.notify()
		l.version.notify()
	})
}

// Pop removes and returns the last element. Returns nil on an empty list.
func (l *List) Pop() any {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return nil
	}
	last := len(l.items) - 1
	v := l.items[last]
	l.items = l.items[:last]
	delete(l.children, last)
	touched := l.depsInRangeLocked(last, last+1)
	l.mu.Unlock()

	Batch(func() {
		for _, d := range touched {
			d.notify()
		}
		l.length.notify()
		l.version.notify()
	})

	return v
}

// Splice removes count elements starting at start, inserts values in their
// place, and returns the removed elements. Indices are clamped to the
// valid range. One logical write: the length node and every index node
// from start through the end of the longer of the old and new lists are
// notified in a single batch.
func (l *List) Splice(start, count int, values ...any) []any {
	l.mu.Lock()

	n := len(l.items)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if count < 0 {
		count = 0
	}
	if start+count > n {
		count = n - start
	}

	removed := make([]any, count)
	copy(removed, l.items[start:start+count])

	next := make([]any, 0, n-count+len(values))
	next = append(next, l.items[:start]...)
	next = append(next, values...)
	next = append(next, l.items[start+count:]...)
	l.items = next

	// Positions shift from start onward; drop all memoized children at
	// or past it.
	for i := range l.children {
		if i >= start {
			delete(l.children, i)
		}
	}

	end := n
	if len(next) > end {
		end = len(next)
	}
	touched := l.depsInRangeLocked(start, end)
	lengthChanged := len(next) != n
	l.mu.Unlock()

	Batch(func() {
		for _, d := range touched {
			d.notify()
		}
		if lengthChanged {
			l.length.notify()
		}
		l.version.notify()
	})

	return removed
}

func (l *List) indexDep(i int) *dep {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexDepLocked(i)
}

func (l *List) indexDepLocked(i int) *dep {
	d, ok := l.deps[i]
	if !ok {
		d = newDep()
		l.deps[i] = d
	}
	return d
}

// depsInRangeLocked collects the existing dependency nodes for indices in
// [start, end). Untracked indices have no node and nothing to notify.
func (l *List) depsInRangeLocked(start, end int) []*dep {
	var out []*dep
	for i := start; i < end; i++ {
		if d, ok := l.deps[i]; ok {
			out = append(out, d)
		}
	}
	return out
}
