// Package storage extends the fluxion reactive graph over durable and
// session-scoped key-value stores.
//
// A Reactive view namespaces a Backend and makes every key a tracked
// dependency: effects that read a key through the view re-run when that
// key changes, whether the write happened locally or in another execution
// context.
//
//	be, _ := storage.OpenBolt("app.db")
//	settings := storage.New(be, "settings")
//
//	fluxion.NewEffect(func() fluxion.Cleanup {
//	    theme, _ := settings.Get(ctx, "theme")
//	    applyTheme(theme)
//	    return nil
//	})
//
//	settings.Set(ctx, "theme", "dark") // effect re-runs
//
// # Backends
//
// Three backends ship with the package: MemoryBackend (session-scoped,
// process lifetime), BoltBackend (durable, survives restart), and
// S3Backend (durable, remote). All are safe for concurrent use.
//
// # Wire Format
//
// Each key stores a JSON envelope {"value":…,"writtenAt":…,"expiresAt":…}
// under "<namespace>:<key>". Expiry is lazy: an expired entry is deleted
// and reported absent on the read that discovers it; there is no
// background sweep.
//
// # Cross-Context Changes
//
// A Notifier carries change events between contexts sharing a backend:
// LocalNotifier within one process, RelayHub/DialRelay over a websocket
// between processes. A view never trusts the notification payload; it
// re-reads the backend, which keeps external updates consistent with lazy
// expiry.
package storage
