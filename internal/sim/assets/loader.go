// Package assets defines the ensure-loaded contract chunk construction
// consumes: an asset is either ready now or the caller receives a
// pending handle to poll while its build step is parked.
package assets

import "fmt"

// Pending is an in-flight load. A chunk build step holding one is
// skipped (not charged against the frame budget) until it resolves.
type Pending struct {
	id       string
	resolved bool
	err      error
}

func (p *Pending) ID() string     { return p.id }
func (p *Pending) Resolved() bool { return p.resolved }

// Err is meaningful only once Resolved reports true.
func (p *Pending) Err() error { return p.err }

type Loader interface {
	// EnsureLoaded returns ready=true when the asset is resident, or a
	// pending handle the caller polls. Repeated calls for the same id
	// while in flight return the same handle.
	EnsureLoaded(id string) (ready bool, pending *Pending)
}

// MemoryLoader resolves loads after a fixed number of ticks. Latency 0
// makes everything synchronously ready. It is the headless stand-in for
// a real asset pipeline and the failure-injection point for tests.
type MemoryLoader struct {
	latency int

	ready    map[string]struct{}
	inflight map[string]*inflightLoad
	failures map[string]string
}

type inflightLoad struct {
	pending   *Pending
	remaining int
}

func NewMemoryLoader(latencyTicks int) *MemoryLoader {
	return &MemoryLoader{
		latency:  latencyTicks,
		ready:    map[string]struct{}{},
		inflight: map[string]*inflightLoad{},
		failures: map[string]string{},
	}
}

// FailWith makes future loads of id resolve with an error.
func (l *MemoryLoader) FailWith(id, reason string) {
	l.failures[id] = reason
}

func (l *MemoryLoader) EnsureLoaded(id string) (bool, *Pending) {
	if _, ok := l.ready[id]; ok {
		return true, nil
	}
	if fl, ok := l.inflight[id]; ok {
		return false, fl.pending
	}
	if l.latency <= 0 {
		if reason, bad := l.failures[id]; bad {
			// Immediate failure still goes through a pending handle so the
			// caller has one error path.
			p := &Pending{id: id, resolved: true, err: fmt.Errorf("load %s: %s", id, reason)}
			return false, p
		}
		l.ready[id] = struct{}{}
		return true, nil
	}
	fl := &inflightLoad{
		pending:   &Pending{id: id},
		remaining: l.latency,
	}
	l.inflight[id] = fl
	return false, fl.pending
}

// Tick advances every in-flight load by one frame.
func (l *MemoryLoader) Tick() {
	for id, fl := range l.inflight {
		fl.remaining--
		if fl.remaining > 0 {
			continue
		}
		fl.pending.resolved = true
		if reason, bad := l.failures[id]; bad {
			fl.pending.err = fmt.Errorf("load %s: %s", id, reason)
		} else {
			l.ready[id] = struct{}{}
		}
		delete(l.inflight, id)
	}
}

// ReadyCount reports resident assets, for stats.
func (l *MemoryLoader) ReadyCount() int { return len(l.ready) }
