package search

import (
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/rs/zerolog"
)

// DefaultCheckInterval is the number of executed candidates between checks
// of ctx.Done() and progress reports.
const DefaultCheckInterval = 1 << 14

// Option configures a search.
type Option func(*options)

type options struct {
	workers       int
	tie           table.TiePolicy
	policy        table.Policy
	curate        bool
	observer      Observer
	logger        zerolog.Logger
	checkInterval uint64
}

func collectOptions(opts ...Option) *options {
	o := &options{
		workers:       1,
		tie:           table.TieLast,
		policy:        table.DefaultPolicy(),
		curate:        true,
		logger:        zerolog.Nop(),
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.checkInterval == 0 {
		o.checkInterval = DefaultCheckInterval
	}
	return o
}

// WithWorkers sets the number of goroutines exploring first-position
// subtrees in parallel. The result does not depend on the worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTiePolicy sets the tie policy of the result table. The default is
// table.TieLast.
func WithTiePolicy(tie table.TiePolicy) Option {
	return func(o *options) {
		o.tie = tie
	}
}

// WithPolicy sets the domain used when curating the table.
func WithPolicy(p table.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithoutCuration returns the raw table as enumerated.
func WithoutCuration() Option {
	return func(o *options) {
		o.curate = false
	}
}

// WithObserver sets an observer for progress events.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithLogger sets the logger used for run summaries.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCheckInterval sets how many candidates are executed between checks of
// ctx.Done() and progress accounting.
func WithCheckInterval(n uint64) Option {
	return func(o *options) {
		o.checkInterval = n
	}
}
