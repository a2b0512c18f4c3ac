package storage

import (
	"context"
	"reflect"

	"github.com/fluxion-dev/fluxion/pkg/fluxion"
)

// WatchOption configures WatchKey.
type WatchOption func(*watchConfig)

type watchConfig struct {
	immediate bool
	ctx       context.Context
}

// Immediate invokes the callback once, synchronously, with the current
// value before any change occurs. The old value for that first call is nil.
func Immediate() WatchOption {
	return func(c *watchConfig) {
		c.immediate = true
	}
}

// WithContext sets the context used for backend reads inside the watch.
func WithContext(ctx context.Context) WatchOption {
	return func(c *watchConfig) {
		c.ctx = ctx
	}
}

// WatchKey observes one key on a reactive view, invoking fn with the new
// and old values when the stored value actually changes. Triggers with no
// net value change (an overwrite with an equal value from another context,
// an invalidation that re-reads the same payload) are filtered out. The
// returned stop function ends the watch.
//
//	stop := storage.WatchKey(settings, "theme", func(newV, oldV any) {
//	    applyTheme(newV)
//	}, storage.Immediate())
//	defer stop()
func WatchKey(r *Reactive, key string, fn func(newValue, oldValue any), opts ...WatchOption) (stop func()) {
	cfg := watchConfig{ctx: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var prev any
	first := true

	e := fluxion.NewEffect(func() fluxion.Cleanup {
		v, _ := r.Get(cfg.ctx, key)
		if first {
			first = false
			prev = v
			if cfg.immediate {
				fn(v, nil)
			}
			return nil
		}
		if watchEqual(prev, v) {
			return nil
		}
		old := prev
		prev = v
		fn(v, old)
		return nil
	}, fluxion.WithName("watch-storage:"+key))

	return e.Stop
}

// watchEqual compares decoded storage values. JSON round-trips erase type
// identity, so deep equality is the right notion here.
func watchEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}
