package fluxion

import (
	"sort"
	"sync"
)

// Store is a reactive string-keyed record. Each key has its own dependency
// node, created lazily the first time the key is read, so an effect reading
// one key is untouched by writes to others. A separate synthetic node
// covers the key set itself: effects calling Keys or Len re-run when keys
// are added or removed, but not when an existing value changes.
//
// Values that are themselves plain records (map[string]any) or slices
// ([]any) are wrapped lazily into a child Store or List on first read, so
// deep mutation is observable without eagerly wrapping the whole structure
// at construction.
type Store struct {
	mu     sync.RWMutex
	values map[string]any

	// deps holds the per-key dependency nodes, created on first track.
	deps map[string]*dep

	// iter is the synthetic node for the key set (Keys, Len, additions,
	// removals).
	iter *dep

	// children memoizes wrapped child containers by key, so repeated
	// reads of a nested record observe the same reactive wrapper.
	children map[string]any
}

// NewStore wraps the given record. The store takes ownership of the map;
// nil means start empty.
func NewStore(initial map[string]any) *Store {
	if initial == nil {
		initial = make(map[string]any)
	}
	return &Store{
		values:   initial,
		deps:     make(map[string]*dep),
		iter:     newDep(),
		children: make(map[string]any),
	}
}

// Get returns the value for key, subscribing the current listener to that
// key. A missing key still tracks, so the listener re-runs when the key
// appears. Nested records and slices come back wrapped.
func (s *Store) Get(key string) any {
	s.keyDep(key).track()

	s.mu.Lock()
	defer s.mu.Unlock()

	if child, ok := s.children[key]; ok {
		return child
	}

	v, ok := s.values[key]
	if !ok {
		return nil
	}

	switch nested := v.(type) {
	case map[string]any:
		child := NewStore(nested)
		s.children[key] = child
		return child
	case []any:
		child := NewList(nested)
		s.children[key] = child
		return child
	default:
		return v
	}
}

// Peek returns the raw value for key without tracking or wrapping.
func (s *Store) Peek(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key exists, subscribing the current listener to the
// key so it re-runs when the key appears or disappears.
func (s *Store) Has(key string) bool {
	s.keyDep(key).track()

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Set stores value under key. Writing a value equal to the current one is
// free. A changed value notifies the key's dependents; a brand-new key also
// notifies iteration dependents, in one batch.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	old, existed := s.values[key]
	if existed && anyEqual(old, value) {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	delete(s.children, key)
	d := s.keyDepLocked(key)
	s.mu.Unlock()

	if existed {
		d.notify()
		return
	}
	Batch(func() {
		d.notify()
		s.iter.notify()
	})
}

// Delete removes key. A no-op for missing keys; otherwise notifies the
// key's dependents and iteration dependents in one batch.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, existed := s.values[key]
	if !existed {
		s.mu.Unlock()
		return
	}
	delete(s.values, key)
	delete(s.children, key)
	d := s.keyDepLocked(key)
	s.mu.Unlock()

	Batch(func() {
		d.notify()
		s.iter.notify()
	})
}

// Keys returns the sorted key set, subscribing the current listener to
// additions and removals.
func (s *Store) Keys() []string {
	s.iter.track()

	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of keys, subscribing the current listener to
// additions and removals.
func (s *Store) Len() int {
	s.iter.track()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// keyDep returns the dependency node for key, creating it on first use.
func (s *Store) keyDep(key string) *dep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyDepLocked(key)
}

func (s *Store) keyDepLocked(key string) *dep {
	d, ok := s.deps[key]
	if !ok {
		d = newDep()
		s.deps[key] = d
	}
	return d
}
