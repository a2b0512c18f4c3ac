package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fluxion-dev/fluxion/pkg/fluxion"
)

// Reactive is a namespaced, dependency-tracked view over a Backend.
//
// Every key is a synthetic reactive property, materialized the first time
// it is read: an effect calling Get or Has subscribes to the key and
// re-runs when it changes, whether the write came from this view, another
// view in the same process, or another process connected through a
// Notifier.
//
// Reads that hit corrupted payloads or backend failures resolve to absent
// rather than panicking or returning errors, so one bad stored entry
// cannot crash an effect that merely reads it. Writes report success as a
// bool; a failed write changes nothing and triggers nothing.
type Reactive struct {
	backend   Backend
	namespace string

	// revs maps each key to a revision counter in a fluxion Store.
	// Reading a key tracks its counter; mutating bumps it, which is the
	// trigger path for all dependents. revMu serializes bumps so
	// concurrent invalidations never skip a revision.
	revs  *fluxion.Store
	revMu sync.Mutex

	// shape is bumped whenever the key set may have changed; Keys and
	// Len dependents subscribe to it.
	shape *fluxion.Signal[int]

	notifier    Notifier
	unsubscribe func()

	// origin distinguishes this view's own published changes from
	// everyone else's.
	origin string

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Reactive view.
type Option func(*Reactive)

// WithNotifier connects the view to a change notifier. Local writes are
// published to it and incoming changes from other origins invalidate the
// matching keys.
func WithNotifier(n Notifier) Option {
	return func(r *Reactive) {
		r.notifier = n
	}
}

// WithLogger sets the logger for read/write failure reports.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reactive) {
		r.logger = l
	}
}

// WithClock overrides the time source. Used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reactive) {
		r.now = now
	}
}

// New creates a reactive view of namespace on backend.
func New(backend Backend, namespace string, opts ...Option) *Reactive {
	r := &Reactive{
		backend:   backend,
		namespace: namespace,
		revs:      fluxion.NewStore(nil),
		shape:     fluxion.NewSignal(0),
		origin:    ulid.Make().String(),
		logger:    slog.Default().With("component", "storage", "namespace", namespace),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.notifier != nil {
		r.unsubscribe = r.notifier.Subscribe(r.onChange)
	}
	return r
}

// Close detaches the view from its notifier. The backend stays open; other
// views may share it.
func (r *Reactive) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Namespace returns the namespace this view covers.
func (r *Reactive) Namespace() string {
	return r.namespace
}

// Get returns the value stored under key, subscribing the current listener
// to the key. Missing, expired, corrupted, and unreadable entries all
// resolve to (nil, false); an expired entry is deleted on the way.
func (r *Reactive) Get(ctx context.Context, key string) (any, bool) {
	r.track(key)

	env, ok := r.load(ctx, key)
	if !ok {
		return nil, false
	}
	return env.Value, true
}

// Has reports whether key holds a live (non-expired) value, subscribing
// the current listener to the key.
func (r *Reactive) Has(ctx context.Context, key string) bool {
	r.track(key)

	_, ok := r.load(ctx, key)
	return ok
}

// Set serializes value into the storage envelope and writes it. Returns
// false, changing and triggering nothing, when the value cannot be
// serialized or the backend rejects the write (capacity, I/O); reactive
// state only advances on a successful persist.
func (r *Reactive) Set(ctx context.Context, key string, value any, opts ...SetOption) bool {
	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	now := r.now()
	env := Envelope{
		Value:     value,
		WrittenAt: now.UnixMilli(),
	}
	if cfg.ttl > 0 {
		env.ExpiresAt = now.Add(cfg.ttl).UnixMilli()
	}
	if !cfg.expiresAt.IsZero() {
		env.ExpiresAt = cfg.expiresAt.UnixMilli()
	}

	data, err := encodeEnvelope(env)
	if err != nil {
		r.logger.Warn("set: value not serializable", "key", key, "error", err)
		return false
	}

	if err := r.backend.Set(ctx, joinKey(r.namespace, key), data); err != nil {
		r.logger.Warn("set: persist failed", "key", key, "error", err)
		return false
	}

	r.invalidate(key)
	r.publish(key)
	return true
}

// Remove deletes key. Returns false only on backend failure.
func (r *Reactive) Remove(ctx context.Context, key string) bool {
	if err := r.backend.Delete(ctx, joinKey(r.namespace, key)); err != nil {
		r.logger.Warn("remove failed", "key", key, "error", err)
		return false
	}

	r.invalidate(key)
	r.publish(key)
	return true
}

// Keys lists the keys currently stored under the namespace, subscribing
// the current listener to key-set changes. Expiry being lazy, a key whose
// entry has expired but was never re-read may still be listed.
func (r *Reactive) Keys(ctx context.Context) []string {
	r.shape.Get()

	prefix := joinKey(r.namespace, "")
	raw, err := r.backend.Keys(ctx, prefix)
	if err != nil {
		r.logger.Warn("keys failed", "error", err)
		return nil
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k[len(prefix):])
	}
	return keys
}

// Clear removes every key under the namespace as one logical write:
// dependents of all removed keys run at most once.
func (r *Reactive) Clear(ctx context.Context) bool {
	prefix := joinKey(r.namespace, "")
	raw, err := r.backend.Keys(ctx, prefix)
	if err != nil {
		r.logger.Warn("clear: listing failed", "error", err)
		return false
	}

	ok := true
	fluxion.Batch(func() {
		for _, stored := range raw {
			if err := r.backend.Delete(ctx, stored); err != nil {
				r.logger.Warn("clear: delete failed", "key", stored, "error", err)
				ok = false
				continue
			}
			r.invalidate(stored[len(prefix):])
		}
	})

	if ok && r.notifier != nil {
		r.notifier.Publish(Change{Namespace: r.namespace, Origin: r.origin})
	}
	return ok
}

// SetOption configures a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl       time.Duration
	expiresAt time.Time
}

// TTL makes the entry expire after d.
func TTL(d time.Duration) SetOption {
	return func(c *setConfig) {
		c.ttl = d
	}
}

// ExpiresAt makes the entry expire at an absolute time.
func ExpiresAt(t time.Time) SetOption {
	return func(c *setConfig) {
		c.expiresAt = t
	}
}

// track subscribes the current listener, if any, to key's revision
// counter. The counter's value is irrelevant; only the dependency edge
// matters.
func (r *Reactive) track(key string) {
	r.revs.Get(key)
}

// load reads and decodes key, applying lazy expiry.
func (r *Reactive) load(ctx context.Context, key string) (Envelope, bool) {
	stored := joinKey(r.namespace, key)

	data, err := r.backend.Get(ctx, stored)
	if err != nil {
		r.logger.Warn("get failed", "key", key, "error", err)
		return Envelope{}, false
	}
	if data == nil {
		return Envelope{}, false
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		r.logger.Warn("corrupted payload", "key", key, "error", err)
		return Envelope{}, false
	}

	if env.expired(r.now()) {
		if err := r.backend.Delete(ctx, stored); err != nil {
			r.logger.Warn("expiry delete failed", "key", key, "error", err)
		}
		r.invalidate(key)
		r.publish(key)
		return Envelope{}, false
	}

	return env, true
}

// invalidate bumps key's revision counter and the key-set shape, running
// every dependent of the key. This is the single trigger path shared by
// local writes, expiry, and external notifications.
func (r *Reactive) invalidate(key string) {
	// The batch defers dependent re-runs until after revMu is released,
	// so an effect that writes back into this view cannot deadlock.
	fluxion.Batch(func() {
		r.revMu.Lock()
		defer r.revMu.Unlock()

		rev, _ := r.revs.Peek(key)
		n, _ := rev.(int)
		r.revs.Set(key, n+1)
		r.shape.Update(func(v int) int { return v + 1 })
	})
}

func (r *Reactive) publish(key string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Publish(Change{
		Namespace: r.namespace,
		Key:       key,
		Origin:    r.origin,
	})
}

// onChange handles a notification from another context. The payload is
// not trusted: dependents re-read the backend when they re-run, which
// keeps external updates consistent with lazy expiry.
func (r *Reactive) onChange(ch Change) {
	if ch.Namespace != r.namespace || ch.Origin == r.origin {
		return
	}

	if ch.Key != "" {
		r.invalidate(ch.Key)
		return
	}

	// Namespace-wide change: invalidate every locally known key.
	var known []string
	fluxion.Untracked(func() {
		known = r.revs.Keys()
	})
	fluxion.Batch(func() {
		for _, k := range known {
			r.invalidate(k)
		}
		r.shape.Update(func(v int) int { return v + 1 })
	})
}
