package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/deepnoodle-ai/shortprog/vm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSearchLengthOne(t *testing.T) {
	res, err := Search(context.Background(), 0, 1, WithoutCuration())
	require.Nil(t, err)
	require.Equal(t, uint64(6), res.Stats.Executed)
	require.False(t, res.Curated)

	entries := res.Table.Entries()
	require.Equal(t, []table.Entry{
		{Transformation: vm.NewTransformation(0, -5), Program: "W"},
		{Transformation: vm.NewTransformation(0, -1), Program: "D"},
		{Transformation: vm.NewTransformation(0, 0), Program: "Q"},
		{Transformation: vm.NewTransformation(0, 1), Program: "I"},
		{Transformation: vm.NewTransformation(0, 5), Program: "V"},
	}, entries)
}

func TestSearchLengthOneTieFirst(t *testing.T) {
	res, err := Search(context.Background(), 0, 1, WithoutCuration(), WithTiePolicy(table.TieFirst))
	require.Nil(t, err)
	program, ok := res.Table.Get(vm.NewTransformation(0, 0))
	require.True(t, ok)
	require.Equal(t, "A", program)
}

func TestSearchCuratedLengthOne(t *testing.T) {
	// "W" also maps 5 to 0. Under TieLast it replaces "A" and is then
	// removed as canonical; under TieFirst "A" survives.
	res, err := Search(context.Background(), 5, 1)
	require.Nil(t, err)
	require.True(t, res.Curated)
	require.Equal(t, 0, res.Table.Len())
	require.Equal(t, table.Report{
		Canonical: 4,
		Identity:  1,
		Removed:   5,
		Remaining: 0,
	}, res.Curation)

	res, err = Search(context.Background(), 5, 1, WithTiePolicy(table.TieFirst))
	require.Nil(t, err)
	require.Equal(t, []table.Entry{
		{Transformation: vm.NewTransformation(5, 0), Program: "A"},
	}, res.Table.Entries())
	require.Equal(t, table.Report{
		Canonical: 3,
		Identity:  1,
		Removed:   4,
		Remaining: 1,
	}, res.Curation)
}

func TestSearchLengthTwoCounts(t *testing.T) {
	res, err := Search(context.Background(), 1, 2, WithoutCuration())
	require.Nil(t, err)
	require.Equal(t, uint64(68), res.Stats.Executed)
	require.Equal(t, uint64(5), res.Stats.Skipped)
	require.Equal(t, uint64(0), res.Stats.Pruned)
	require.LessOrEqual(t, res.Stats.Executed, EstimateTotal(2))
}

func TestSearchInvalidLength(t *testing.T) {
	for _, length := range []int{0, -1, vm.MaxProgramLength + 1} {
		_, err := Search(context.Background(), 0, length)
		require.NotNil(t, err)
		require.True(t, errz.Is(err, errz.ErrUsage), "length %d", length)
	}
}

func TestSearchWorkersDeterministic(t *testing.T) {
	for _, tie := range []table.TiePolicy{table.TieLast, table.TieFirst} {
		t.Run(tie.String(), func(t *testing.T) {
			sequential, err := Search(context.Background(), 3, 4, WithTiePolicy(tie), WithoutCuration())
			require.Nil(t, err)
			parallel, err := Search(context.Background(), 3, 4, WithTiePolicy(tie), WithoutCuration(), WithWorkers(6))
			require.Nil(t, err)
			require.Equal(t, sequential.Stats, parallel.Stats)
			require.Equal(t, sequential.Table.Entries(), parallel.Table.Entries())
		})
	}
}

func TestSearchCurationInvariants(t *testing.T) {
	policy := table.DefaultPolicy()
	res, err := Search(context.Background(), 10, 4, WithWorkers(3), WithPolicy(policy))
	require.Nil(t, err)
	require.Greater(t, res.Table.Len(), 0)
	for _, e := range res.Table.Entries() {
		require.False(t, table.IsCanonical(e.Program), e.Program)
		require.NotEqual(t, e.Start, e.End)
		require.True(t, policy.InDomain(e.End))
		require.Equal(t, 10.0, e.Start)
	}
}

func TestSearchNonFiniteResults(t *testing.T) {
	policy := table.DefaultPolicy()
	for _, start := range []float64{1e300, math.Inf(1), math.Inf(-1)} {
		t.Run(fmt.Sprint(start), func(t *testing.T) {
			raw, err := Search(context.Background(), start, 4, WithoutCuration(), WithWorkers(3))
			require.Nil(t, err)
			nans := 0
			for _, e := range raw.Table.Entries() {
				if math.IsNaN(e.End) {
					nans++
				}
			}
			require.Equal(t, 1, nans)

			res, err := Search(context.Background(), start, 4, WithWorkers(3))
			require.Nil(t, err)
			require.Equal(t, raw.Table.Len(), res.Curation.Removed+res.Curation.Remaining)
			require.Equal(t, res.Table.Len(), res.Curation.Remaining)
			for _, e := range res.Table.Entries() {
				require.True(t, policy.InDomain(e.End), "end %v from %q", e.End, e.Program)
				require.False(t, table.IsCanonical(e.Program))
			}
		})
	}
}

// reference enumerates the same candidate set as the searcher, one program
// string at a time, and returns the shortest witness length for every
// transformation.
func reference(t *testing.T, start float64, length int) map[vm.Transformation]int {
	shortest := map[vm.Transformation]int{}
	m := vm.New()
	var walk func(prefix []op.Code)
	walk = func(prefix []op.Code) {
		padded := make([]op.Code, length)
		for i := range padded {
			padded[i] = op.Nop
		}
		copy(padded, prefix)
		tr, ok, err := m.Execute(padded, start)
		require.Nil(t, err)
		if !ok {
			return
		}
		if n, exists := shortest[tr]; !exists || len(prefix) < n {
			shortest[tr] = len(prefix)
		}
		if len(prefix) == length {
			return
		}
		alphabet := op.Interior
		if len(prefix) == length-1 {
			alphabet = op.Final
		}
		for _, c := range alphabet {
			if op.Redundant(prefix[len(prefix)-1], c) {
				continue
			}
			walk(append(append([]op.Code{}, prefix...), c))
		}
	}
	for _, first := range op.First {
		walk([]op.Code{first})
	}
	return shortest
}

func TestSearchShortestWitness(t *testing.T) {
	const start, length = 2, 4
	res, err := Search(context.Background(), start, length, WithoutCuration(), WithWorkers(2))
	require.Nil(t, err)
	want := reference(t, start, length)
	require.Equal(t, len(want), res.Table.Len())
	for _, e := range res.Table.Entries() {
		n, ok := want[e.Transformation]
		require.True(t, ok)
		require.Equal(t, n, len(e.Program), "witness %s for %v", e.Program, e.Transformation)

		program, err := op.Parse(e.Program)
		require.Nil(t, err)
		tr, ok, err := vm.Execute(program, start)
		require.Nil(t, err)
		require.True(t, ok)
		require.Equal(t, e.Transformation, tr)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Progress
}

func (o *recordingObserver) Config() ObserverConfig {
	return ObserverConfig{SampleInterval: 100}
}

func (o *recordingObserver) OnProgress(p Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, p)
}

func TestSearchProgress(t *testing.T) {
	observer := &recordingObserver{}
	res, err := Search(context.Background(), 1, 4,
		WithObserver(observer), WithCheckInterval(10), WithWorkers(3))
	require.Nil(t, err)
	require.Greater(t, len(observer.events), 2)

	last := observer.events[len(observer.events)-1]
	require.True(t, last.Done)
	require.Equal(t, res.Stats.Executed, last.Executed)
	require.Equal(t, EstimateTotal(4), last.Total)
	require.Equal(t, res.RunID, last.RunID)

	var prev uint64
	for _, ev := range observer.events {
		require.GreaterOrEqual(t, ev.Executed, prev)
		prev = ev.Executed
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, 1, 5, WithCheckInterval(1), WithWorkers(2))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestSearchLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	res, err := Search(context.Background(), 1, 2, WithLogger(logger))
	require.Nil(t, err)
	out := buf.String()
	require.Contains(t, out, `"message":"search started"`)
	require.Contains(t, out, `"message":"search finished"`)
	require.Contains(t, out, res.RunID.String())
}

func TestEstimateTotal(t *testing.T) {
	require.Equal(t, uint64(0), EstimateTotal(0))
	require.Equal(t, uint64(6), EstimateTotal(1))
	require.Equal(t, uint64(72), EstimateTotal(2))
	require.Equal(t, uint64(942), EstimateTotal(3))
	require.Equal(t, uint64(math.MaxUint64), EstimateTotal(vm.MaxProgramLength))
}

func TestProgressPercent(t *testing.T) {
	require.Equal(t, 50.0, Progress{Executed: 5, Total: 10}.Percent())
	require.Equal(t, 0.0, Progress{Executed: 5}.Percent())
}
