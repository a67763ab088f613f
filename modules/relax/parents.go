package relax

import (
	"context"
	"fmt"

	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/graph"
)

// ResolveShortestParents tags every edge that lies on a cheapest path into an
// OR vertex. Ties tag all minimal parents. AND vertices, sources and
// unreachable vertices get no tags. The result is in forward edge order.
func ResolveShortestParents(ctx context.Context, be backend.Backend, b *graph.Batch, costs []int32) ([]bool, error) {
	if len(costs) != b.GraphCount*b.VertexCount {
		return nil, fmt.Errorf("%w: %v costs for %v vertices", graph.ErrInvalidBatch, len(costs), b.GraphCount*b.VertexCount)
	}
	if !b.Transposed() {
		if err := b.Transpose(ctx, be); err != nil {
			return nil, err
		}
	}

	tags := make([]bool, b.GraphCount*b.EdgeCount)
	// every edge has exactly one target, so lanes never share a tag
	err := be.Dispatch(ctx, b.GraphCount*b.VertexCount, func(lane int) {
		g, v := lane/b.VertexCount, lane%b.VertexCount
		cost := costs[lane]
		if cost == graph.Infinity || b.IsAnd(g, v) || b.IsSource(g, v) {
			return
		}
		start, end := b.InverseEdgeRange(v)
		for slot := start; slot < end; slot++ {
			parent := b.GlobalVertex(g, int(b.InverseEdgeArray[slot]))
			if graph.AddCost(costs[parent], b.InverseWeightArray[g*b.EdgeCount+slot]) == cost {
				tags[b.GlobalEdge(g, int(b.InverseEdgeIndex[slot]))] = true
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
