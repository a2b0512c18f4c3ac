package storage

import (
	"context"
	"testing"
)

func TestWatchKeyDeliversChanges(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	type call struct{ newV, oldV any }
	var calls []call
	stop := WatchKey(r, "theme", func(newV, oldV any) {
		calls = append(calls, call{newV, oldV})
	})
	defer stop()

	if len(calls) != 0 {
		t.Fatalf("callback ran before any change: %v", calls)
	}

	r.Set(ctx, "theme", "dark")
	r.Set(ctx, "theme", "light")

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0] != (call{"dark", nil}) {
		t.Errorf("first call = %+v, want {dark <nil>}", calls[0])
	}
	if calls[1] != (call{"light", "dark"}) {
		t.Errorf("second call = %+v, want {light dark}", calls[1])
	}
}

func TestWatchKeyImmediate(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")
	r.Set(ctx, "theme", "dark")

	var calls []any
	stop := WatchKey(r, "theme", func(newV, oldV any) {
		calls = append(calls, newV)
	}, Immediate())
	defer stop()

	if len(calls) != 1 || calls[0] != "dark" {
		t.Errorf("immediate call = %v, want [dark]", calls)
	}
}

// Overwriting a key with an equal value triggers dependents but the watch
// filters out the non-change.
func TestWatchKeyFiltersNoOpWrites(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")
	r.Set(ctx, "theme", "dark")

	calls := 0
	stop := WatchKey(r, "theme", func(newV, oldV any) {
		calls++
	})
	defer stop()

	r.Set(ctx, "theme", "dark")
	if calls != 0 {
		t.Errorf("equal overwrite invoked callback %d times, want 0", calls)
	}

	r.Set(ctx, "theme", "light")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWatchKeyStop(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	calls := 0
	stop := WatchKey(r, "theme", func(newV, oldV any) {
		calls++
	})

	stop()
	r.Set(ctx, "theme", "dark")

	if calls != 0 {
		t.Errorf("stopped watch invoked callback %d times", calls)
	}
}

func TestWatchKeyIgnoresOtherKeys(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryBackend(), "settings")

	calls := 0
	stop := WatchKey(r, "theme", func(newV, oldV any) {
		calls++
	})
	defer stop()

	r.Set(ctx, "volume", 5)

	if calls != 0 {
		t.Errorf("unrelated key invoked callback %d times", calls)
	}
}
