// Package reference holds a slow sequential solver used to check the results
// of the parallel engine.
package reference

import (
	"github.com/lkarlslund/pathcost/modules/graph"
)

// Solve computes the costs of one instance with an array based Dijkstra. The
// cheapest unprocessed vertex with a finite cost is picked by a linear scan,
// which makes it O(V^2). An AND vertex only gets a cost once every parent
// has been processed, and that cost is the largest parent cost plus weight.
func Solve(b *graph.Batch, instance int) []int32 {
	dist := make([]int32, b.VertexCount)
	running := make([]int32, b.VertexCount)
	parentCount := make([]int32, b.VertexCount)
	processed := make([]bool, b.VertexCount)
	copy(parentCount, b.ParentCountArray)

	for v := range dist {
		dist[v] = graph.Infinity
		if b.IsAnd(instance, v) {
			running[v] = b.MaxVertexArray[v]
		}
	}
	for _, s := range b.SourceArray[instance] {
		dist[s] = 0
	}

	for {
		u := -1
		for v := range dist {
			if processed[v] || dist[v] == graph.Infinity {
				continue
			}
			if u == -1 || dist[v] < dist[u] {
				u = v
			}
		}
		if u == -1 {
			break
		}
		processed[u] = true

		// every vertex is processed once, so each edge is traversed once
		start, end := b.EdgeRange(u)
		for e := start; e < end; e++ {
			v := int(b.EdgeArray[e])
			parentCount[v]--
			candidate := graph.AddCost(dist[u], b.Weight(instance, e))
			if processed[v] {
				continue
			}
			if b.IsAnd(instance, v) {
				running[v] = max(running[v], candidate)
				if parentCount[v] == 0 {
					dist[v] = running[v]
				}
			} else if candidate < dist[v] {
				dist[v] = candidate
			}
		}
	}
	return dist
}
