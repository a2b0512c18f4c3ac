package fluxion

// WatchFunc receives the new and old values of a watched key.
type WatchFunc func(newValue, oldValue any)

// Watch observes named keys on a store, invoking the callback for a key
// only when its value actually changes by strict equality. A trigger with
// no net value change (a no-op replacement) is filtered out. The returned
// stop function ends all watches.
//
//	stop := fluxion.Watch(state, map[string]fluxion.WatchFunc{
//	    "theme": func(newV, oldV any) { applyTheme(newV) },
//	})
//	defer stop()
func Watch(s *Store, defs map[string]WatchFunc) (stop func()) {
	stops := make([]func(), 0, len(defs))

	for key, fn := range defs {
		stops = append(stops, watchKey(s, key, fn))
	}

	return func() {
		for _, st := range stops {
			st()
		}
	}
}

func watchKey(s *Store, key string, fn WatchFunc) (stop func()) {
	var prev any
	first := true

	e := NewEffect(func() Cleanup {
		v := s.Get(key)
		if first {
			first = false
			prev = v
			return nil
		}
		if anyEqual(prev, v) {
			return nil
		}
		old := prev
		prev = v
		fn(v, old)
		return nil
	}, WithName("watch:"+key))

	return e.Stop
}

// WatchSignal observes a single signal with typed old/new values, using
// the signal's configured equality to filter no-op triggers.
func WatchSignal[T any](s *Signal[T], fn func(newValue, oldValue T)) (stop func()) {
	var prev T
	first := true

	e := NewEffect(func() Cleanup {
		v := s.Get()
		if first {
			first = false
			prev = v
			return nil
		}
		if s.equals(prev, v) {
			return nil
		}
		old := prev
		prev = v
		fn(v, old)
		return nil
	})

	return e.Stop
}
