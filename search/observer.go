package search

import (
	"sync"

	"github.com/gofrs/uuid"
)

// Progress describes how far a search has advanced.
type Progress struct {
	RunID uuid.UUID
	// Executed is the number of candidates evaluated so far.
	Executed uint64
	// Total is an upper bound on the number of candidates; pruning and
	// redundant pairs make the real count smaller.
	Total uint64
	// Done is set on the final event of a run.
	Done bool
}

// Percent returns Executed as a percentage of Total.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return 100 * float64(p.Executed) / float64(p.Total)
}

// ObserverConfig specifies how often an observer wants to hear about
// progress.
type ObserverConfig struct {
	// SampleInterval is the minimum number of executed candidates between
	// OnProgress calls. Values of 0 are treated as DefaultCheckInterval.
	SampleInterval uint64
}

// Observer receives progress events from a running search. Calls are
// serialized even when several workers are running.
type Observer interface {
	Config() ObserverConfig
	OnProgress(p Progress)
}

// NoOpObserver is an Observer implementation that does nothing.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig { return ObserverConfig{} }
func (NoOpObserver) OnProgress(Progress)    {}

var _ Observer = NoOpObserver{}

// reporter aggregates executed counts from all workers and forwards
// sampled progress to the observer.
type reporter struct {
	mu       sync.Mutex
	observer Observer
	interval uint64
	next     uint64
	progress Progress
}

func newReporter(observer Observer, p Progress) *reporter {
	if observer == nil {
		observer = NoOpObserver{}
	}
	interval := observer.Config().SampleInterval
	if interval == 0 {
		interval = DefaultCheckInterval
	}
	return &reporter{
		observer: observer,
		interval: interval,
		next:     interval,
		progress: p,
	}
}

func (r *reporter) add(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Executed += n
	if r.progress.Executed >= r.next {
		r.next = r.progress.Executed + r.interval
		r.observer.OnProgress(r.progress)
	}
}

func (r *reporter) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Done = true
	r.observer.OnProgress(r.progress)
}
