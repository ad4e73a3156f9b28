package assets

import "testing"

func TestEnsureLoaded_ZeroLatencyIsSynchronous(t *testing.T) {
	l := NewMemoryLoader(0)
	ready, pending := l.EnsureLoaded("mesh/pine")
	if !ready || pending != nil {
		t.Fatalf("zero-latency load not ready: %v %v", ready, pending)
	}
}

func TestEnsureLoaded_ResolvesAfterLatencyTicks(t *testing.T) {
	l := NewMemoryLoader(3)
	ready, p := l.EnsureLoaded("mesh/pine")
	if ready || p == nil {
		t.Fatalf("expected pending handle")
	}
	for i := 0; i < 2; i++ {
		l.Tick()
		if p.Resolved() {
			t.Fatalf("resolved after %d ticks, want 3", i+1)
		}
	}
	l.Tick()
	if !p.Resolved() || p.Err() != nil {
		t.Fatalf("not resolved cleanly after 3 ticks: %v %v", p.Resolved(), p.Err())
	}
	if ready, _ := l.EnsureLoaded("mesh/pine"); !ready {
		t.Fatalf("asset not resident after resolve")
	}
}

func TestEnsureLoaded_SharedPendingHandle(t *testing.T) {
	l := NewMemoryLoader(2)
	_, p1 := l.EnsureLoaded("mesh/fir")
	_, p2 := l.EnsureLoaded("mesh/fir")
	if p1 != p2 {
		t.Fatalf("in-flight load returned distinct handles")
	}
}

func TestEnsureLoaded_FailureResolvesWithError(t *testing.T) {
	l := NewMemoryLoader(1)
	l.FailWith("mesh/broken", "corrupt archive")
	_, p := l.EnsureLoaded("mesh/broken")
	l.Tick()
	if !p.Resolved() {
		t.Fatalf("failed load did not resolve")
	}
	if p.Err() == nil {
		t.Fatalf("failed load resolved without error")
	}
	// Failure must not mark the asset resident.
	ready, _ := l.EnsureLoaded("mesh/broken")
	if ready {
		t.Fatalf("failed asset reported ready")
	}
}
