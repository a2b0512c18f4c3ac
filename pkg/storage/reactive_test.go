package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fluxion-dev/fluxion/pkg/fluxion"
)

func TestReactiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	if !r.Set(ctx, "theme", "dark") {
		t.Fatal("Set failed")
	}

	v, ok := r.Get(ctx, "theme")
	if !ok || v != "dark" {
		t.Errorf("Get = (%v, %v), want (dark, true)", v, ok)
	}
	if !r.Has(ctx, "theme") {
		t.Error("Has should report true for a stored key")
	}

	v, ok = r.Get(ctx, "missing")
	if ok || v != nil {
		t.Errorf("missing key: got (%v, %v), want (nil, false)", v, ok)
	}
	if r.Has(ctx, "missing") {
		t.Error("Has should report false for a missing key")
	}
}

// JSON serialization erases type identity: numbers come back as float64
// and maps as map[string]any.
func TestReactiveRoundTripStructured(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	r.Set(ctx, "profile", map[string]any{
		"name":  "ada",
		"score": 42,
		"tags":  []any{"a", "b"},
	})

	v, ok := r.Get(ctx, "profile")
	if !ok {
		t.Fatal("Get failed")
	}
	want := map[string]any{
		"name":  "ada",
		"score": float64(42),
		"tags":  []any{"a", "b"},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReactiveEffectRerunsOnSet(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	var seen []any
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		v, _ := r.Get(ctx, "theme")
		seen = append(seen, v)
		return nil
	})
	defer e.Stop()

	r.Set(ctx, "theme", "dark")
	r.Set(ctx, "theme", "light")

	want := []any{nil, "dark", "light"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("effect observations (-want +got):\n%s", diff)
	}
}

// A key that was only ever read while absent still triggers when it is
// later written for the first time.
func TestReactiveTracksAbsentKey(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		r.Has(ctx, "flag")
		return nil
	})
	defer e.Stop()

	r.Set(ctx, "flag", true)

	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestReactiveSetFailureTriggersNothing(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(WithMaxBytes(8))
	r := New(backend, "settings")

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		r.Get(ctx, "big")
		return nil
	})
	defer e.Stop()

	if r.Set(ctx, "big", "a value far larger than the backend allows") {
		t.Error("Set should fail on a full backend")
	}
	if runs != 1 {
		t.Errorf("failed write re-ran dependents: runs = %d, want 1", runs)
	}
	if _, ok := r.Get(ctx, "big"); ok {
		t.Error("failed write left data behind")
	}
}

func TestReactiveSetUnserializable(t *testing.T) {
	r := New(NewMemoryBackend(), "settings")

	if r.Set(context.Background(), "ch", make(chan int)) {
		t.Error("Set should fail for an unserializable value")
	}
}

func TestReactiveCorruptedPayload(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	r := New(backend, "settings")

	backend.Set(ctx, "settings:broken", []byte("{not json"))

	v, ok := r.Get(ctx, "broken")
	if ok || v != nil {
		t.Errorf("corrupted entry: got (%v, %v), want (nil, false)", v, ok)
	}
}

func TestReactiveLazyExpiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	current := time.Unix(1_000_000, 0)
	r := New(backend, "session", WithClock(func() time.Time { return current }))

	r.Set(ctx, "token", "abc", TTL(time.Minute))

	if v, ok := r.Get(ctx, "token"); !ok || v != "abc" {
		t.Fatalf("before expiry: got (%v, %v), want (abc, true)", v, ok)
	}

	current = current.Add(2 * time.Minute)

	if _, ok := r.Get(ctx, "token"); ok {
		t.Error("expired entry should read as absent")
	}

	// The expired read deletes the entry from the backend.
	data, err := backend.Get(ctx, "session:token")
	if err != nil || data != nil {
		t.Errorf("expired entry not purged: data=%v err=%v", data, err)
	}
}

func TestReactiveExpiryTriggersDependents(t *testing.T) {
	ctx := context.Background()
	current := time.Unix(1_000_000, 0)
	r := New(NewMemoryBackend(), "session", WithClock(func() time.Time { return current }))

	r.Set(ctx, "token", "abc", TTL(time.Minute))

	var last any
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		last, _ = r.Get(ctx, "token")
		return nil
	})
	defer e.Stop()

	if last != "abc" {
		t.Fatalf("initial read: got %v, want abc", last)
	}

	current = current.Add(2 * time.Minute)

	// Some other reader notices the expiry; the effect re-runs and sees
	// the key gone.
	r.Get(ctx, "token")

	if last != nil {
		t.Errorf("after expiry: effect observed %v, want nil", last)
	}
}

func TestReactiveRemove(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	r.Set(ctx, "theme", "dark")

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		r.Get(ctx, "theme")
		return nil
	})
	defer e.Stop()

	if !r.Remove(ctx, "theme") {
		t.Fatal("Remove failed")
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	if _, ok := r.Get(ctx, "theme"); ok {
		t.Error("removed key still readable")
	}
}

func TestReactiveKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	r := New(backend, "settings")
	other := New(backend, "session")

	r.Set(ctx, "a", 1)
	r.Set(ctx, "b", 2)
	other.Set(ctx, "c", 3)

	got := r.Keys(ctx)
	want := []string{"a", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
}

func TestReactiveKeysTracksShape(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	var counts []int
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		counts = append(counts, len(r.Keys(ctx)))
		return nil
	})
	defer e.Stop()

	r.Set(ctx, "a", 1)
	r.Set(ctx, "b", 2)

	want := []int{0, 1, 2}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("key counts (-want +got):\n%s", diff)
	}
}

func TestReactiveClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	r := New(backend, "settings")
	other := New(backend, "session")

	r.Set(ctx, "a", 1)
	r.Set(ctx, "b", 2)
	other.Set(ctx, "keep", true)

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		r.Get(ctx, "a")
		r.Get(ctx, "b")
		return nil
	})
	defer e.Stop()

	if !r.Clear(ctx) {
		t.Fatal("Clear failed")
	}

	// One logical write: both removed keys, one re-run.
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	if got := r.Keys(ctx); len(got) != 0 {
		t.Errorf("Keys after Clear = %v, want empty", got)
	}
	if v, ok := other.Get(ctx, "keep"); !ok || v != true {
		t.Error("Clear crossed namespace boundary")
	}
}

func TestReactiveCrossContext(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	hub := NewLocalNotifier()

	a := New(backend, "settings", WithNotifier(hub))
	b := New(backend, "settings", WithNotifier(hub))
	defer a.Close()
	defer b.Close()

	var seen []any
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		v, _ := b.Get(ctx, "theme")
		seen = append(seen, v)
		return nil
	})
	defer e.Stop()

	a.Set(ctx, "theme", "dark")

	want := []any{nil, "dark"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("cross-context observations (-want +got):\n%s", diff)
	}
}

// A view ignores its own published changes; its dependents run exactly
// once per write, not once locally plus once for the echoed notification.
func TestReactiveIgnoresOwnChanges(t *testing.T) {
	ctx := context.Background()
	hub := NewLocalNotifier()
	a := New(NewMemoryBackend(), "settings", WithNotifier(hub))
	defer a.Close()

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		a.Get(ctx, "theme")
		return nil
	})
	defer e.Stop()

	a.Set(ctx, "theme", "dark")

	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestReactiveNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	hub := NewLocalNotifier()

	settings := New(backend, "settings", WithNotifier(hub))
	session := New(backend, "session", WithNotifier(hub))
	defer settings.Close()
	defer session.Close()

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		session.Get(ctx, "theme")
		return nil
	})
	defer e.Stop()

	settings.Set(ctx, "theme", "dark")

	if runs != 1 {
		t.Errorf("change in another namespace re-ran dependents: runs = %d, want 1", runs)
	}
}

func TestReactiveCrossContextClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	hub := NewLocalNotifier()

	a := New(backend, "settings", WithNotifier(hub))
	b := New(backend, "settings", WithNotifier(hub))
	defer a.Close()
	defer b.Close()

	a.Set(ctx, "theme", "dark")

	var last any = "unset"
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		last, _ = b.Get(ctx, "theme")
		return nil
	})
	defer e.Stop()

	if last != "dark" {
		t.Fatalf("initial read: got %v, want dark", last)
	}

	a.Clear(ctx)

	if last != nil {
		t.Errorf("after remote clear: got %v, want nil", last)
	}
}

func TestReactiveCloseDetaches(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	hub := NewLocalNotifier()

	a := New(backend, "settings", WithNotifier(hub))
	b := New(backend, "settings", WithNotifier(hub))
	defer a.Close()

	runs := 0
	e := fluxion.NewEffect(func() fluxion.Cleanup {
		runs++
		b.Get(ctx, "theme")
		return nil
	})
	defer e.Stop()

	b.Close()
	a.Set(ctx, "theme", "dark")

	if runs != 1 {
		t.Errorf("closed view still received changes: runs = %d, want 1", runs)
	}
}
