package graph

import (
	"fmt"
	"slices"
)

// Edge is one arc in edge list form, with a weight per instance
type Edge struct {
	Source  int32   `json:"source"`
	Target  int32   `json:"target"`
	Weights []int32 `json:"weights"`
}

// FromEdges builds a batch from an unordered edge list. The instance count is
// taken from sources. Edges keep their relative order within one source.
func FromEdges(vertexCount int, edges []Edge, maxVertexArray []int32, sources [][]int32) (*Batch, error) {
	graphCount := len(sources)
	if vertexCount <= 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrInvalidBatch)
	}

	sorted := slices.Clone(edges)
	slices.SortStableFunc(sorted, func(a, b Edge) int {
		return int(a.Source) - int(b.Source)
	})

	vertexArray := make([]int32, vertexCount)
	edgeArray := make([]int32, len(sorted))
	weightArray := make([]int32, graphCount*len(sorted))

	next := 0
	for e, edge := range sorted {
		if edge.Source < 0 || int(edge.Source) >= vertexCount {
			return nil, fmt.Errorf("%w: edge %v->%v starts outside the graph", ErrInvalidBatch, edge.Source, edge.Target)
		}
		if len(edge.Weights) != graphCount {
			return nil, fmt.Errorf("%w: edge %v->%v has %v weights for %v instances", ErrInvalidBatch, edge.Source, edge.Target, len(edge.Weights), graphCount)
		}
		for ; next <= int(edge.Source); next++ {
			vertexArray[next] = int32(e)
		}
		edgeArray[e] = edge.Target
		for g, w := range edge.Weights {
			weightArray[g*len(sorted)+e] = w
		}
	}
	for ; next < vertexCount; next++ {
		vertexArray[next] = int32(len(sorted))
	}

	return New(graphCount, vertexArray, edgeArray, weightArray, maxVertexArray, sources)
}

// Edges returns the batch as an edge list in forward order
func (b *Batch) Edges() []Edge {
	edges := make([]Edge, 0, b.EdgeCount)
	for v := 0; v < b.VertexCount; v++ {
		start, end := b.EdgeRange(v)
		for e := start; e < end; e++ {
			weights := make([]int32, b.GraphCount)
			for g := range weights {
				weights[g] = b.Weight(g, e)
			}
			edges = append(edges, Edge{
				Source:  int32(v),
				Target:  b.EdgeArray[e],
				Weights: weights,
			})
		}
	}
	return edges
}
