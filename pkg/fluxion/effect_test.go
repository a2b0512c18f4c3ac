package fluxion

import (
	"testing"
)

func TestEffectRunsImmediately(t *testing.T) {
	s := NewSignal(0)

	var logged []int
	e := NewEffect(func() Cleanup {
		logged = append(logged, s.Get())
		return nil
	})
	defer e.Stop()

	if len(logged) != 1 || logged[0] != 0 {
		t.Fatalf("initial run: logged %v, want [0]", logged)
	}
}

// The counter scenario: effect logs immediately, a changed write logs
// exactly once, an equal write logs nothing.
func TestEffectCounterScenario(t *testing.T) {
	state := NewStore(map[string]any{"count": 0})

	var logged []any
	e := NewEffect(func() Cleanup {
		logged = append(logged, state.Get("count"))
		return nil
	})
	defer e.Stop()

	if len(logged) != 1 || logged[0] != 0 {
		t.Fatalf("initial: logged %v, want [0]", logged)
	}

	state.Set("count", 1)
	if len(logged) != 2 || logged[1] != 1 {
		t.Fatalf("after write: logged %v, want [0 1]", logged)
	}

	state.Set("count", 1)
	if len(logged) != 2 {
		t.Fatalf("after no-op write: logged %v, want [0 1]", logged)
	}
}

func TestEffectDependencyIsolation(t *testing.T) {
	a := NewSignal(1)
	b := NewSignal(1)

	runs := 0
	e := NewEffect(func() Cleanup {
		runs++
		_ = a.Get()
		return nil
	})
	defer e.Stop()

	// Writing a signal the effect never read must not re-run it.
	b.Set(2)
	if runs != 1 {
		t.Errorf("unrelated write re-ran effect: %d runs, want 1", runs)
	}

	a.Set(2)
	if runs != 2 {
		t.Errorf("related write: %d runs, want 2", runs)
	}
}

// Conditional dependency pruning: once the branch reading p is no longer
// taken, writes to p must not re-run the effect.
func TestEffectConditionalDependencyPruning(t *testing.T) {
	flag := NewSignal(true)
	p := NewSignal("a")

	runs := 0
	e := NewEffect(func() Cleanup {
		runs++
		if flag.Get() {
			_ = p.Get()
		}
		return nil
	})
	defer e.Stop()

	if runs != 1 {
		t.Fatalf("initial runs = %d, want 1", runs)
	}

	flag.Set(false) // re-run drops the subscription to p
	if runs != 2 {
		t.Fatalf("after flag flip: runs = %d, want 2", runs)
	}

	p.Set("b")
	if runs != 2 {
		t.Errorf("pruned dependency still triggered: runs = %d, want 2", runs)
	}

	flag.Set(true) // subscription to p comes back
	p.Set("c")
	if runs != 4 {
		t.Errorf("re-added dependency: runs = %d, want 4", runs)
	}
}

// Self-referential termination: an effect that reads and writes the same
// signal converges instead of looping forever.
func TestEffectSelfReferentialTermination(t *testing.T) {
	s := NewSignal(0)

	runs := 0
	e := NewEffect(func() Cleanup {
		runs++
		if v := s.Get(); v < 5 {
			s.Set(v + 1)
		}
		return nil
	})
	defer e.Stop()

	if got := s.Peek(); got != 5 {
		t.Errorf("converged value: got %d, want 5", got)
	}
	// One initial run plus one per increment.
	if runs != 6 {
		t.Errorf("runs = %d, want 6", runs)
	}
}

func TestEffectStop(t *testing.T) {
	s := NewSignal(0)

	runs := 0
	e := NewEffect(func() Cleanup {
		runs++
		_ = s.Get()
		return nil
	})

	e.Stop()
	s.Set(1)

	if runs != 1 {
		t.Errorf("stopped effect re-ran: %d runs, want 1", runs)
	}

	// Idempotent.
	e.Stop()
}

func TestEffectCleanupRunsBeforeRerunAndOnStop(t *testing.T) {
	s := NewSignal(0)

	var order []string
	e := NewEffect(func() Cleanup {
		v := s.Get()
		order = append(order, "run")
		return func() {
			order = append(order, "cleanup")
			_ = v
		}
	})

	s.Set(1)
	e.Stop()

	want := []string{"run", "cleanup", "run", "cleanup"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEffectPanicIsolation(t *testing.T) {
	s := NewSignal(0)

	// A panicking effect must not corrupt bookkeeping for a healthy one.
	panics := NewEffect(func() Cleanup {
		if s.Get() > 0 {
			panic("boom")
		}
		return nil
	}, WithName("panicky"))
	defer panics.Stop()

	healthyRuns := 0
	healthy := NewEffect(func() Cleanup {
		healthyRuns++
		_ = s.Get()
		return nil
	})
	defer healthy.Stop()

	s.Set(1) // panicky panics, healthy must still run
	if healthyRuns != 2 {
		t.Errorf("healthy effect ran %d times, want 2", healthyRuns)
	}

	s.Set(2)
	if healthyRuns != 3 {
		t.Errorf("healthy effect ran %d times, want 3", healthyRuns)
	}
}

func TestEffectNestedTrackingRestored(t *testing.T) {
	outer := NewSignal(0)
	inner := NewSignal(0)

	outerRuns := 0
	var innerEffect *Effect
	e := NewEffect(func() Cleanup {
		outerRuns++
		_ = outer.Get()
		if innerEffect == nil {
			// Creating an effect mid-run must not steal the outer
			// effect's dependencies read afterwards.
			innerEffect = NewEffect(func() Cleanup {
				_ = inner.Get()
				return nil
			})
		}
		return nil
	})
	defer e.Stop()
	defer innerEffect.Stop()

	inner.Set(1)
	if outerRuns != 1 {
		t.Errorf("inner dependency leaked to outer: %d runs, want 1", outerRuns)
	}

	outer.Set(1)
	if outerRuns != 2 {
		t.Errorf("outer dependency lost: %d runs, want 2", outerRuns)
	}
}

func TestOnChangeSkipsFirstRun(t *testing.T) {
	s := NewSignal(0)

	calls := 0
	e := OnChange(
		func() { _ = s.Get() },
		func() { calls++ },
	)
	defer e.Stop()

	if calls != 0 {
		t.Fatalf("callback ran on first run: %d calls", calls)
	}

	s.Set(1)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// Same-key notification order is subscription order.
func TestEffectNotificationOrder(t *testing.T) {
	s := NewSignal(0)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		e := NewEffect(func() Cleanup {
			_ = s.Get()
			order = append(order, name)
			return nil
		})
		defer e.Stop()
	}

	order = nil
	s.Set(1)

	want := []string{"first", "second", "third"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("notification order = %v, want %v", order, want)
		}
	}
}
