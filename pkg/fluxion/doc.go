// Package fluxion provides a fine-grained reactive runtime: observable
// state containers, automatic dependency capture during reads, and
// synchronous effect re-execution on writes.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := fluxion.NewSignal(0)
//	value := count.Get()  // read (subscribes the current listener)
//	count.Set(5)          // write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Store is a reactive string-keyed record with per-key dependencies,
// and List is its slice counterpart:
//
//	state := fluxion.NewStore(map[string]any{"theme": "light"})
//	theme := state.Get("theme")
//	state.Set("theme", "dark")
//
// Computed[T] is a lazily recomputed derived value:
//
//	doubled := fluxion.NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()  // recomputes only if dependencies changed
//
// Effects run side effects when their dependencies change:
//
//	e := fluxion.NewEffect(func() fluxion.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
//	defer e.Stop()
//
// # Batching
//
// Multiple writes can be grouped so each dependent runs at most once:
//
//	fluxion.Batch(func() {
//	    first.Set("John")
//	    last.Set("Doe")
//	})
//
// # Cleanup Scopes
//
// Collector gathers teardown callbacks for one-call disposal, and Scope
// additionally stops every effect created during its body:
//
//	dispose := fluxion.Scope(func(collect func(func())) {
//	    collect(ticker.Stop)
//	    fluxion.NewEffect(render)
//	})
//	defer dispose()
//
// # Scheduling Model
//
// The runtime is cooperative and synchronous: a write runs its dependents
// to completion before returning to the writer. At most one listener is
// actively tracking per goroutine, held in a goroutine-local slot.
package fluxion
