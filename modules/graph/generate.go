package graph

import (
	"fmt"
	"math/rand"
)

type GenerateOptions struct {
	Graphs            int     // instances sharing the topology
	Vertices          int     // attack steps
	ChildrenPerVertex int     // fixed out degree
	Sources           int     // attack points, shared by all instances
	ProbMax           float64 // fraction of AND vertices
	MaxWeight         int32   // weights are drawn from [0, MaxWeight)
	Seed              int64

	// Acyclic only lets edges point at higher numbered vertices, so no AND
	// vertex can wait for itself. Vertices near the end get fewer children.
	Acyclic bool
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Graphs:            1000,
		Vertices:          1000,
		ChildrenPerVertex: 3,
		Sources:           1,
		ProbMax:           0.1,
		MaxWeight:         1000,
		Seed:              1,
	}
}

// Generate creates a random batch. Sources are never AND vertices.
func Generate(opts GenerateOptions) (*Batch, error) {
	if opts.Sources > opts.Vertices {
		return nil, fmt.Errorf("%w: %v sources requested from %v vertices", ErrInvalidBatch, opts.Sources, opts.Vertices)
	}
	if opts.Sources <= 0 || opts.Vertices <= 0 || opts.Graphs <= 0 || opts.ChildrenPerVertex < 0 {
		return nil, fmt.Errorf("%w: generator needs positive counts, got %+v", ErrInvalidBatch, opts)
	}
	if opts.MaxWeight <= 0 {
		opts.MaxWeight = 1000
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	vertexArray := make([]int32, opts.Vertices)
	maxVertexArray := make([]int32, opts.Vertices)
	edgeArray := make([]int32, 0, opts.Vertices*opts.ChildrenPerVertex)

	for v := 0; v < opts.Vertices; v++ {
		vertexArray[v] = int32(len(edgeArray))
		if rng.Float64() < opts.ProbMax {
			maxVertexArray[v] = 0
		} else {
			maxVertexArray[v] = -1
		}
		for c := 0; c < opts.ChildrenPerVertex; c++ {
			if opts.Acyclic {
				remaining := opts.Vertices - v - 1
				if remaining <= 0 {
					break
				}
				edgeArray = append(edgeArray, int32(v+1+rng.Intn(remaining)))
			} else {
				edgeArray = append(edgeArray, int32(rng.Intn(opts.Vertices)))
			}
		}
	}

	weightArray := make([]int32, opts.Graphs*len(edgeArray))
	fillWeights(rng, weightArray, opts.MaxWeight)

	picked := make([]int32, 0, opts.Sources)
	for _, v := range rng.Perm(opts.Vertices)[:opts.Sources] {
		picked = append(picked, int32(v))
		maxVertexArray[v] = -1
	}
	sources := make([][]int32, opts.Graphs)
	for g := range sources {
		sources[g] = picked
	}

	return New(opts.Graphs, vertexArray, edgeArray, weightArray, maxVertexArray, sources)
}

func fillWeights(rng *rand.Rand, weights []int32, maxWeight int32) {
	for i := range weights {
		weights[i] = rng.Int31n(maxWeight)
	}
}

// RerollWeights draws new weights for every instance and keeps the topology.
// The inverse weights are refreshed in place when the batch is transposed.
// Any attached results are dropped, they belong to the old weights.
func (b *Batch) RerollWeights(rng *rand.Rand, maxWeight int32) {
	if maxWeight <= 0 {
		maxWeight = 1000
	}
	fillWeights(rng, b.WeightArray, maxWeight)
	b.refreshInverseWeights()
	b.CostArray = nil
	b.ShortestParentsArray = nil
}
