package relax_test

import (
	"context"
	"math/rand"
	"slices"
	"testing"

	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/reference"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inf = graph.Infinity

type arc struct {
	from, to, weight int32
}

// single instance batch, kinds are -1 for OR and >= 0 for AND
func build(t *testing.T, kinds []int32, sources []int32, arcs ...arc) *graph.Batch {
	t.Helper()
	edges := make([]graph.Edge, len(arcs))
	for i, a := range arcs {
		edges[i] = graph.Edge{Source: a.from, Target: a.to, Weights: []int32{a.weight}}
	}
	b, err := graph.FromEdges(len(kinds), edges, kinds, [][]int32{sources})
	require.NoError(t, err)
	return b
}

func backends() []backend.Backend {
	return []backend.Backend{backend.Serial{}, backend.NewCPU(4), &backend.CPU{Workers: 3, ChunkSize: 1}}
}

func TestChain(t *testing.T) {
	b := build(t, []int32{-1, -1, -1}, []int32{0}, arc{0, 1, 5}, arc{1, 2, 7})
	for _, be := range backends() {
		result, err := relax.NewEngine(be).Run(context.Background(), b)
		require.NoError(t, err, be.Name())
		assert.Equal(t, []int32{0, 5, 12}, result.Costs, be.Name())
		assert.Equal(t, []bool{true, true}, result.ShortestParents, be.Name())
	}
}

func TestProgressBar(t *testing.T) {
	b := build(t, []int32{-1, -1, -1, -1}, []int32{0}, arc{0, 1, 5}, arc{1, 2, 7})
	e := relax.NewEngine(backend.Serial{})
	e.Progress = "relax progress test"

	var during []ui.BarStatus
	e.Inspect = func(*relax.State) {
		for _, bar := range ui.ProgressBars() {
			if bar.Title == e.Progress {
				during = append(during, bar)
			}
		}
	}
	_, err := e.Run(context.Background(), b)
	require.NoError(t, err)

	require.Len(t, during, 1)
	assert.EqualValues(t, 3, during[0].Current, "vertex 3 is never reached")
	assert.EqualValues(t, 4, during[0].Total)
	for _, bar := range ui.ProgressBars() {
		assert.NotEqual(t, e.Progress, bar.Title, "bar left running after the computation")
	}
}

func TestAndWaitsForAllParents(t *testing.T) {
	b := build(t, []int32{-1, -1, 0}, []int32{0},
		arc{0, 1, 3},
		arc{0, 2, 2},
		arc{1, 2, 6},
	)
	require.NoError(t, b.Transpose(context.Background(), backend.Serial{}))

	state := relax.NewState(b)
	lanes := b.GraphCount * b.VertexCount
	phase := func() {
		for lane := 0; lane < lanes; lane++ {
			state.Propose(lane)
		}
		for lane := 0; lane < lanes; lane++ {
			state.Commit(lane)
		}
	}

	phase()
	assert.EqualValues(t, 3, state.Vertex(0, 1).Cost)
	assert.EqualValues(t, inf, state.Vertex(0, 2).Cost, "AND vertex published before its second parent relaxed")
	assert.EqualValues(t, 1, state.Vertex(0, 2).ParentCount)

	phase()
	assert.EqualValues(t, 9, state.Vertex(0, 2).Cost)
	assert.EqualValues(t, 0, state.Vertex(0, 2).ParentCount)

	phase()
	assert.False(t, state.Active())
	assert.Equal(t, []int32{0, 3, 9}, state.Costs())
}

func TestAndFanIn(t *testing.T) {
	b := build(t, []int32{-1, -1, 0}, []int32{0, 1},
		arc{0, 2, 3},
		arc{1, 2, 9},
	)
	for _, be := range backends() {
		result, err := relax.NewEngine(be).Run(context.Background(), b)
		require.NoError(t, err, be.Name())
		assert.Equal(t, []int32{0, 0, 9}, result.Costs, be.Name())
		assert.Equal(t, []bool{false, false}, result.ShortestParents, be.Name())
	}

	state := relax.NewState(b)
	state.Propose(0)
	assert.EqualValues(t, inf, state.Vertex(0, 2).UpdatingCost, "AND vertex proposed before its second parent relaxed")
	assert.EqualValues(t, 1, state.Vertex(0, 2).ParentCount)
	state.Propose(1)
	assert.EqualValues(t, 9, state.Vertex(0, 2).UpdatingCost)
	assert.EqualValues(t, inf, state.Vertex(0, 2).Cost)
	state.Commit(2)
	assert.EqualValues(t, 9, state.Vertex(0, 2).Cost)
}

func TestAndUnreachableParent(t *testing.T) {
	b := build(t, []int32{-1, -1, 0, -1}, []int32{0},
		arc{0, 2, 1},
		arc{1, 2, 1},
		arc{2, 3, 1},
	)
	for _, be := range backends() {
		result, err := relax.NewEngine(be).Run(context.Background(), b)
		require.NoError(t, err, be.Name())
		assert.Equal(t, []int32{0, inf, inf, inf}, result.Costs, be.Name())
		assert.Equal(t, []bool{false, false, false}, result.ShortestParents, be.Name())
	}
}

func TestAndBaseline(t *testing.T) {
	b := build(t, []int32{-1, 50}, []int32{0}, arc{0, 1, 4})
	result, err := relax.NewEngine(backend.Serial{}).Run(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 50}, result.Costs)
}

// An OR parent first publishes an expensive cost and improves one round later.
// The AND child must end up with the improved maximum.
func TestAndSeesImprovedParent(t *testing.T) {
	b := build(t, []int32{-1, -1, -1, 0, -1}, []int32{0},
		arc{0, 1, 10},
		arc{0, 2, 1},
		arc{2, 1, 1},
		arc{1, 3, 0},
		arc{0, 4, 5},
		arc{4, 3, 0},
	)
	want := []int32{0, 2, 1, 5, 5}
	for _, be := range backends() {
		result, err := relax.NewEngine(be).Run(context.Background(), b)
		require.NoError(t, err, be.Name())
		assert.Equal(t, want, result.Costs, be.Name())
	}
	assert.Equal(t, want, reference.Solve(b, 0))
}

func TestShortestParentTies(t *testing.T) {
	b := build(t, []int32{-1, -1, -1, -1}, []int32{0},
		arc{0, 1, 2},
		arc{0, 2, 3},
		arc{1, 3, 4},
		arc{2, 3, 3},
		arc{0, 3, 7},
	)
	result, err := relax.NewEngine(backend.Serial{}).Run(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 3, 6}, result.Costs)
	// forward order: 0->1, 0->2, 0->3, 1->3, 2->3
	assert.Equal(t, []bool{true, true, false, true, true}, result.ShortestParents)
}

func TestMatchesReference(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		opts := graph.DefaultGenerateOptions()
		opts.Graphs = 4
		opts.Vertices = 150
		opts.Sources = int(seed%3) + 1
		opts.ProbMax = 0.3
		opts.Seed = seed
		opts.Acyclic = seed%2 == 0

		b, err := graph.Generate(opts)
		require.NoError(t, err)

		result, err := relax.NewEngine(backend.NewCPU(4)).Run(context.Background(), b)
		require.NoError(t, err, "seed %v", seed)

		for g := 0; g < b.GraphCount; g++ {
			assert.Equal(t, reference.Solve(b, g), b.Instance(result.Costs, g), "seed %v instance %v", seed, g)
		}
		assertOrOptimal(t, b, result)
	}
}

// every reachable OR vertex that is not a source has a tagged parent edge
// whose cost adds up
func assertOrOptimal(t *testing.T, b *graph.Batch, result *relax.Result) {
	t.Helper()
	tagged := make([]bool, b.GraphCount*b.VertexCount)
	for g := 0; g < b.GraphCount; g++ {
		for e := 0; e < b.EdgeCount; e++ {
			if !result.ShortestParents[b.GlobalEdge(g, e)] {
				continue
			}
			source, target := b.EdgeSource(e), int(b.EdgeArray[e])
			require.Equal(t, result.Costs[b.GlobalVertex(g, target)],
				graph.AddCost(result.Costs[b.GlobalVertex(g, source)], b.Weight(g, e)))
			tagged[b.GlobalVertex(g, target)] = true
		}
	}
	for g := 0; g < b.GraphCount; g++ {
		for v := 0; v < b.VertexCount; v++ {
			i := b.GlobalVertex(g, v)
			if result.Costs[i] == inf || b.IsAnd(g, v) || b.IsSource(g, v) {
				continue
			}
			assert.True(t, tagged[i], "instance %v vertex %v has no shortest parent", g, v)
		}
	}
}

func TestRerunAfterReroll(t *testing.T) {
	opts := graph.DefaultGenerateOptions()
	opts.Graphs = 3
	opts.Vertices = 200
	opts.ProbMax = 0.2
	b, err := graph.Generate(opts)
	require.NoError(t, err)

	engine := relax.NewEngine(backend.NewCPU(2))
	first, err := engine.Run(context.Background(), b)
	require.NoError(t, err)
	again, err := engine.Run(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, first.Costs, again.Costs)
	assert.Equal(t, first.ShortestParents, again.ShortestParents)

	b.RerollWeights(rand.New(rand.NewSource(7)), 1000)
	rerolled, err := engine.Run(context.Background(), b)
	require.NoError(t, err)

	fresh, err := graph.New(b.GraphCount, slices.Clone(b.VertexArray), slices.Clone(b.EdgeArray),
		slices.Clone(b.WeightArray), slices.Clone(b.MaxVertexArray), b.SourceArray)
	require.NoError(t, err)
	expected, err := engine.Run(context.Background(), fresh)
	require.NoError(t, err)

	assert.Equal(t, expected.Costs, rerolled.Costs)
	assert.Equal(t, expected.ShortestParents, rerolled.ShortestParents)
}

func TestPhasesPerPoll(t *testing.T) {
	b := build(t, []int32{-1, -1, -1, -1}, []int32{0}, arc{0, 1, 1}, arc{1, 2, 1}, arc{2, 3, 1})
	engine := relax.NewEngine(backend.Serial{})
	engine.PhasesPerPoll = 8
	result, err := engine.Run(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3}, result.Costs)
	assert.Equal(t, 1, result.Polls)
	assert.Equal(t, 8, result.Iterations)
}

func TestNotConverged(t *testing.T) {
	kinds := make([]int32, 20)
	var arcs []arc
	for v := range kinds {
		kinds[v] = -1
		if v > 0 {
			arcs = append(arcs, arc{int32(v - 1), int32(v), 1})
		}
	}
	b := build(t, kinds, []int32{0}, arcs...)

	engine := relax.NewEngine(backend.Serial{})
	engine.MaxIterations = 3
	_, err := engine.Run(context.Background(), b)
	require.ErrorIs(t, err, relax.ErrNotConverged)

	engine.MaxIterations = 50
	result, err := engine.Run(context.Background(), b)
	require.NoError(t, err)
	assert.EqualValues(t, 19, result.Costs[19])
}

func TestCancelled(t *testing.T) {
	b := build(t, []int32{-1, -1}, []int32{0}, arc{0, 1, 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := relax.NewEngine(backend.Serial{}).Run(ctx, b)
	require.ErrorIs(t, err, context.Canceled)
}
