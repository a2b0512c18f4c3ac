package fluxion

import (
	"sync"
)

// dep is a type-erased dependency node: the subscriber list for one tracked
// value. Signal and Computed embed one; Store and List keep one per key
// plus synthetic nodes for iteration and length.
type dep struct {
	id uint64

	// subs are the listeners subscribed to this node, in subscription
	// order. Notification order for one node is subscription order.
	subs []Listener

	// subMu protects subs.
	subMu sync.RWMutex
}

func newDep() *dep {
	return &dep{id: nextID()}
}

// track subscribes the current listener, if any, and records this node on
// the listener's source list so the subscription can be dropped before the
// listener's next run. Reads outside any tracked run are no-ops.
func (d *dep) track() {
	l := currentListener()
	if l == nil {
		return
	}
	d.subscribe(l)
	if st, ok := l.(sourceTracker); ok {
		st.addSource(d)
	}
}

// subscribe adds a listener, deduplicating by listener ID.
func (d *dep) subscribe(l Listener) {
	if l == nil {
		return
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	lid := l.ID()
	for _, existing := range d.subs {
		if existing.ID() == lid {
			return
		}
	}

	d.subs = append(d.subs, l)
}

// unsubscribe removes a listener. Removal preserves subscription order so
// that notification order stays stable for the remaining listeners.
func (d *dep) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	lid := l.ID()
	for i, existing := range d.subs {
		if existing.ID() == lid {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// notify tells every subscriber that this node's value changed. Subscribers
// are copied before iteration: a re-running effect mutates its
// subscriptions mid-notification, and mutating the live list while walking
// it would skip or duplicate entries.
func (d *dep) notify() {
	d.subMu.RLock()
	subs := make([]Listener, len(d.subs))
	copy(subs, d.subs)
	d.subMu.RUnlock()

	countTrigger()

	if batchDepth() > 0 {
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
		return
	}

	for _, sub := range subs {
		sub.MarkDirty()
	}
}
