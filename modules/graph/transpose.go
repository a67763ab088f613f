package graph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lkarlslund/pathcost/modules/backend"
)

// Transpose builds the inverse CSR (the parents of every vertex) with a
// parallel counting sort: an indegree histogram, a prefix sum on the host and
// a scatter where every edge claims its slot with an atomic cursor. Each step
// is its own dispatch, so the previous one has completed everywhere before the
// next one starts.
//
// The order of parents inside one vertex depends on scheduling. Consumers must
// only rely on the set of (parent, weight) pairs and on InverseEdgeIndex.
func (b *Batch) Transpose(ctx context.Context, be backend.Backend) error {
	indegree := make([]atomic.Int32, b.VertexCount)

	err := be.Dispatch(ctx, b.EdgeCount, func(e int) {
		indegree[b.EdgeArray[e]].Add(1)
	})
	if err != nil {
		return err
	}

	inverseVertexArray := make([]int32, b.VertexCount)
	cursors := make([]atomic.Int32, b.VertexCount)
	var offset int32
	for v := range indegree {
		inverseVertexArray[v] = offset
		cursors[v].Store(offset)
		offset += indegree[v].Load()
	}

	inverseEdgeArray := make([]int32, b.EdgeCount)
	inverseEdgeIndex := make([]int32, b.EdgeCount)
	inverseWeightArray := make([]int32, b.GraphCount*b.EdgeCount)

	err = be.Dispatch(ctx, b.EdgeCount, func(e int) {
		target := b.EdgeArray[e]
		slot := int(cursors[target].Add(1) - 1)
		inverseEdgeArray[slot] = int32(b.EdgeSource(e))
		inverseEdgeIndex[slot] = int32(e)
		for g := 0; g < b.GraphCount; g++ {
			inverseWeightArray[g*b.EdgeCount+slot] = b.WeightArray[g*b.EdgeCount+e]
		}
	})
	if err != nil {
		return err
	}

	b.InverseVertexArray = inverseVertexArray
	b.InverseEdgeArray = inverseEdgeArray
	b.InverseEdgeIndex = inverseEdgeIndex
	b.InverseWeightArray = inverseWeightArray
	b.transposed = true
	return nil
}

// refreshInverseWeights copies forward weights into their inverse slots. The
// topology is unchanged, so InverseEdgeIndex still maps every slot.
func (b *Batch) refreshInverseWeights() {
	if !b.transposed {
		return
	}
	for g := 0; g < b.GraphCount; g++ {
		base := g * b.EdgeCount
		for slot, e := range b.InverseEdgeIndex {
			b.InverseWeightArray[base+slot] = b.WeightArray[base+int(e)]
		}
	}
}

// SetInverse attaches an inverse CSR that was built earlier for the same
// topology, typically loaded from a snapshot. Inverse weights are derived from
// the forward weights.
func (b *Batch) SetInverse(inverseVertexArray, inverseEdgeArray, inverseEdgeIndex []int32) error {
	if len(inverseVertexArray) != b.VertexCount || len(inverseEdgeArray) != b.EdgeCount || len(inverseEdgeIndex) != b.EdgeCount {
		return fmt.Errorf("%w: inverse CSR does not match the topology", ErrInvalidBatch)
	}
	var previous int32
	for v, offset := range inverseVertexArray {
		if (v == 0 && offset != 0) || offset < previous || int(offset) > b.EdgeCount {
			return fmt.Errorf("%w: inverse offset %v of vertex %v is out of order", ErrInvalidBatch, offset, v)
		}
		previous = offset
	}

	seen := make([]bool, b.EdgeCount)
	for v := 0; v < b.VertexCount; v++ {
		start := int(inverseVertexArray[v])
		end := b.EdgeCount
		if v+1 < b.VertexCount {
			end = int(inverseVertexArray[v+1])
		}
		for slot := start; slot < end; slot++ {
			e := inverseEdgeIndex[slot]
			if e < 0 || int(e) >= b.EdgeCount || seen[e] {
				return fmt.Errorf("%w: inverse slot %v does not map to a distinct edge", ErrInvalidBatch, slot)
			}
			seen[e] = true
			if int(b.EdgeArray[e]) != v || b.EdgeSource(int(e)) != int(inverseEdgeArray[slot]) {
				return fmt.Errorf("%w: inverse slot %v does not map to a matching edge", ErrInvalidBatch, slot)
			}
		}
	}
	b.InverseVertexArray = inverseVertexArray
	b.InverseEdgeArray = inverseEdgeArray
	b.InverseEdgeIndex = inverseEdgeIndex
	b.InverseWeightArray = make([]int32, b.GraphCount*b.EdgeCount)
	b.transposed = true
	b.refreshInverseWeights()
	return nil
}
