package storage

import "sync"

// Change describes a mutation of one namespaced key, delivered to every
// other context sharing the backend. Key is empty when a whole namespace
// was cleared. Origin identifies the view that made the change, so a view
// can ignore its own notifications.
//
// A Change carries no payload on purpose: receivers re-read the backend,
// which keeps them consistent with lazy expiry.
type Change struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Origin    string `json:"origin"`
}

// Notifier carries Changes between execution contexts sharing a backend.
type Notifier interface {
	// Publish delivers a change to every subscriber, including ones in
	// other contexts.
	Publish(Change)

	// Subscribe registers a handler for incoming changes. The returned
	// function removes it.
	Subscribe(fn func(Change)) (unsubscribe func())
}

// LocalNotifier is an in-process Notifier: a broadcast hub for multiple
// Reactive views sharing one backend within the same process.
type LocalNotifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Change)
}

// NewLocalNotifier creates an empty in-process notifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		subs: make(map[int]func(Change)),
	}
}

// Publish delivers the change synchronously to every subscriber.
// Handlers are copied out before invocation so a handler that subscribes
// or unsubscribes doesn't mutate the map mid-iteration.
func (n *LocalNotifier) Publish(ch Change) {
	n.mu.RLock()
	handlers := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		handlers = append(handlers, fn)
	}
	n.mu.RUnlock()

	for _, fn := range handlers {
		fn(ch)
	}
}

// Subscribe registers a handler and returns its removal function.
func (n *LocalNotifier) Subscribe(fn func(Change)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}
