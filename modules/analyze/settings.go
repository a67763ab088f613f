package analyze

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Settings control how a batch is computed
type Settings struct {
	Workers       int
	PhasesPerPoll int
	MaxIterations int
	CheckCycles   bool
}

func DefaultSettings() Settings {
	return Settings{
		Workers:       runtime.NumCPU(),
		PhasesPerPoll: 1,
	}
}

// AddFlags registers the engine settings on a command's flag set, the
// returned settings are filled in when the flags are parsed
func AddFlags(fs *pflag.FlagSet) *Settings {
	s := DefaultSettings()
	fs.IntVar(&s.Workers, "workers", s.Workers, "Number of goroutines running lanes, 1 runs everything in order")
	fs.IntVar(&s.PhasesPerPoll, "phasesperpoll", s.PhasesPerPoll, "Propose/commit phase pairs between checks for convergence")
	fs.IntVar(&s.MaxIterations, "maxiterations", s.MaxIterations, "Give up after this many phase pairs (0 is unlimited)")
	fs.BoolVar(&s.CheckCycles, "checkcycles", s.CheckCycles, "Refuse batches where AND vertices sit on a cycle")
	return &s
}

func (s Settings) Backend() backend.Backend {
	return backend.New(s.Workers)
}

func (s Settings) Engine() *relax.Engine {
	e := relax.NewEngine(s.Backend())
	e.PhasesPerPoll = s.PhasesPerPoll
	e.MaxIterations = s.MaxIterations
	return e
}

var tuneOnce sync.Once

// TuneRuntime sets memory, GC and CPU limits once before heavy work
func TuneRuntime() {
	tuneOnce.Do(func() {
		memlimit.SetGoMemLimit(0.8)
		debug.SetGCPercent(35)
		maxprocs.Set(maxprocs.Logger(ui.Debug().Msgf))
	})
}

// Compute runs e on b and stores the results in the batch
func Compute(ctx context.Context, e *relax.Engine, b *graph.Batch, checkCycles bool) (*relax.Result, error) {
	if checkCycles {
		if err := b.CheckAndAcyclic(); err != nil {
			return nil, err
		}
	}
	andVertices, orVertices := b.Statistics()
	ui.Info().Msgf("Computing %v instances of %v vertices (%v AND, %v OR) and %v edges on %v",
		b.GraphCount, b.VertexCount, andVertices, orVertices, b.EdgeCount, e.Backend.Name())

	result, err := e.Run(ctx, b)
	if err != nil {
		return nil, err
	}
	if err = b.SetResults(result.Costs, result.ShortestParents); err != nil {
		return nil, fmt.Errorf("storing results: %w", err)
	}
	ui.Info().Msgf("Converged after %v iterations (%v polls) in %v", result.Iterations, result.Polls, result.Duration)
	return result, nil
}

// Record describes a finished or failed computation for the run history
func Record(origin string, s Settings, b *graph.Batch, result *relax.Result, err error) persistence.Run {
	r := persistence.NewRun(origin)
	r.Backend = s.Backend().Name()
	r.Workers = s.Workers
	r.PhasesPerPoll = s.PhasesPerPoll
	if b != nil {
		r.GraphCount = b.GraphCount
		r.VertexCount = b.VertexCount
		r.EdgeCount = b.EdgeCount
		r.AndVertices, _ = b.Statistics()
	}
	if result != nil {
		r.Iterations = result.Iterations
		r.Polls = result.Polls
		r.Duration = result.Duration
		r.Unreachable = Unreachable(result.Costs)
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Unreachable counts infinite costs
func Unreachable(costs []int32) int {
	var count int
	for _, cost := range costs {
		if cost == graph.Infinity {
			count++
		}
	}
	return count
}

// Blocked splits unreachable vertices into those no source has a path to and
// those cut off by an AND vertex missing a parent
func Blocked(b *graph.Batch, costs []int32) (disconnected, blocked int) {
	for g := 0; g < b.GraphCount; g++ {
		reached := b.Reachable(g)
		for v, cost := range b.Instance(costs, g) {
			if cost != graph.Infinity {
				continue
			}
			if reached[v] {
				blocked++
			} else {
				disconnected++
			}
		}
	}
	return disconnected, blocked
}
