// Package relax computes attack path costs for every instance of a batch at
// once, by relaxing all vertices in lock step until nothing changes. OR
// vertices take the cheapest parent, AND vertices the most expensive one once
// every parent has been reached.
package relax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrNotConverged = errors.New("relaxation did not converge")

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathcost_relax_runs_total",
		Help: "Relaxation runs by result",
	}, []string{"result"})

	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathcost_relax_iterations_total",
		Help: "Propose and commit phase pairs executed",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathcost_relax_duration_seconds",
		Help:    "Wall time of a relaxation run including shortest parent resolution",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

type Engine struct {
	Backend backend.Backend

	// PhasesPerPoll is the number of phase pairs run between scans of the
	// mask on the host
	PhasesPerPoll int

	// MaxIterations stops a run that has not converged, 0 is unlimited
	MaxIterations int

	// Inspect is called with the final state before it is discarded
	Inspect func(*State)

	// Progress names a progress bar counting reached vertices, none when empty
	Progress string
}

func NewEngine(be backend.Backend) *Engine {
	return &Engine{
		Backend:       be,
		PhasesPerPoll: 1,
	}
}

type Result struct {
	Costs           []int32 // GraphCount*VertexCount
	ShortestParents []bool  // GraphCount*EdgeCount, forward edge order
	Iterations      int
	Polls           int
	Duration        time.Duration
}

// Run computes costs and shortest parent tags for every instance of b. The
// inverse CSR is built first when missing.
func (e *Engine) Run(ctx context.Context, b *graph.Batch) (result *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, ErrNotConverged):
			status = "not_converged"
		case err != nil:
			status = "error"
		}
		runsTotal.WithLabelValues(status).Inc()
		if err == nil {
			runDuration.Observe(time.Since(start).Seconds())
		}
	}()

	be := e.Backend
	if be == nil {
		be = backend.NewCPU(0)
	}
	phases := max(e.PhasesPerPoll, 1)

	if !b.Transposed() {
		if err = b.Transpose(ctx, be); err != nil {
			return nil, fmt.Errorf("transposing batch: %w", err)
		}
	}

	state := NewState(b)
	lanes := b.GraphCount * b.VertexCount
	result = &Result{}

	var bar *ui.Bar
	var reached int
	if e.Progress != "" {
		bar = ui.ProgressBar(e.Progress, int64(lanes))
		defer bar.Finish()
	}

	for {
		for i := 0; i < phases; i++ {
			if err = be.Dispatch(ctx, lanes, state.Propose); err != nil {
				return nil, err
			}
			if err = be.Dispatch(ctx, lanes, state.Commit); err != nil {
				return nil, err
			}
			result.Iterations++
			iterationsTotal.Inc()
		}
		result.Polls++
		if bar != nil {
			now := state.Reached()
			bar.Add(int64(now - reached))
			reached = now
		}
		if !state.Active() {
			break
		}
		if e.MaxIterations > 0 && result.Iterations >= e.MaxIterations {
			return nil, fmt.Errorf("%w after %v iterations", ErrNotConverged, result.Iterations)
		}
	}

	ui.Debug().Msgf("Relaxation on %v converged after %v iterations and %v polls", be.Name(), result.Iterations, result.Polls)

	if e.Inspect != nil {
		e.Inspect(state)
	}

	result.Costs = state.Costs()
	result.ShortestParents, err = ResolveShortestParents(ctx, be, b, result.Costs)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}
