package relax

import (
	"sync/atomic"

	"github.com/lkarlslund/pathcost/modules/graph"
)

// State is the working memory of one computation, one entry per global vertex
// (or global edge for traversed). Every cross lane access goes through atomics.
type State struct {
	batch *graph.Batch

	cost         []atomic.Int32 // published, only written by Commit
	updatingCost []atomic.Int32 // write target of Propose
	parentCount  []atomic.Int32 // parent edges not yet traversed
	maxVertex    []atomic.Int32 // running maximum seen by AND vertices
	traversed    []atomic.Int32 // per edge
	mask         []atomic.Bool
}

// NewState allocates and seeds the state. The batch must be transposed.
func NewState(b *graph.Batch) *State {
	vertices := b.GraphCount * b.VertexCount
	s := &State{
		batch:        b,
		cost:         make([]atomic.Int32, vertices),
		updatingCost: make([]atomic.Int32, vertices),
		parentCount:  make([]atomic.Int32, vertices),
		maxVertex:    make([]atomic.Int32, vertices),
		traversed:    make([]atomic.Int32, b.GraphCount*b.EdgeCount),
		mask:         make([]atomic.Bool, vertices),
	}
	for g := 0; g < b.GraphCount; g++ {
		for v := 0; v < b.VertexCount; v++ {
			i := b.GlobalVertex(g, v)
			s.parentCount[i].Store(b.ParentCountArray[v])
			if b.IsAnd(g, v) {
				s.maxVertex[i].Store(b.MaxVertexArray[v])
			} else {
				s.maxVertex[i].Store(-1)
			}
			if b.IsSource(g, v) {
				s.cost[i].Store(0)
				s.updatingCost[i].Store(0)
				s.mask[i].Store(true)
			} else {
				s.cost[i].Store(graph.Infinity)
				s.updatingCost[i].Store(graph.Infinity)
			}
		}
	}
	return s
}

// Propose relaxes the outgoing edges of a masked vertex into updatingCost of
// its children. Published costs are not touched.
func (s *State) Propose(lane int) {
	if !s.mask[lane].CompareAndSwap(true, false) {
		return
	}
	b := s.batch
	g, u := lane/b.VertexCount, lane%b.VertexCount
	if b.IsAnd(g, u) && s.parentCount[lane].Load() != 0 {
		return
	}
	cost := s.cost[lane].Load()
	if cost == graph.Infinity {
		return
	}

	start, end := b.EdgeRange(u)
	for e := start; e < end; e++ {
		ge := b.GlobalEdge(g, e)
		v := int(b.EdgeArray[e])
		gv := b.GlobalVertex(g, v)

		if s.traversed[ge].Add(1) == 1 {
			s.parentCount[gv].Add(-1)
		}

		candidate := graph.AddCost(cost, b.WeightArray[ge])
		if !b.IsAnd(g, v) {
			atomicMin(&s.updatingCost[gv], candidate)
			continue
		}

		atomicMax(&s.maxVertex[gv], candidate)
		if s.parentCount[gv].Load() == 0 {
			s.settle(g, v)
		}
	}
}

// settle computes the value of an AND vertex whose parents have all been
// traversed. It is recomputed from published parent costs every time, as the
// running maximum can still hold candidates from parents that improved since.
func (s *State) settle(g, v int) {
	b := s.batch
	gv := b.GlobalVertex(g, v)
	value := b.MaxVertexArray[v]
	start, end := b.InverseEdgeRange(v)
	for slot := start; slot < end; slot++ {
		parent := b.GlobalVertex(g, int(b.InverseEdgeArray[slot]))
		candidate := graph.AddCost(s.cost[parent].Load(), b.InverseWeightArray[g*b.EdgeCount+slot])
		value = max(value, candidate)
	}
	if value == graph.Infinity {
		return
	}
	atomicMin(&s.maxVertex[gv], value)
	if atomicMin(&s.updatingCost[gv], value) {
		s.mask[gv].Store(true)
	}
}

// Commit publishes a strictly lower in-flight cost and marks the vertex for
// the next round
func (s *State) Commit(lane int) {
	updating := s.updatingCost[lane].Load()
	if updating < s.cost[lane].Load() {
		s.cost[lane].Store(updating)
		s.mask[lane].Store(true)
	}
}

// Active reports whether any vertex is waiting to propagate
func (s *State) Active() bool {
	for i := range s.mask {
		if s.mask[i].Load() {
			return true
		}
	}
	return false
}

// Reached counts vertices with a published finite cost
func (s *State) Reached() int {
	var reached int
	for i := range s.cost {
		if s.cost[i].Load() != graph.Infinity {
			reached++
		}
	}
	return reached
}

// Costs copies the published costs out of the state
func (s *State) Costs() []int32 {
	costs := make([]int32, len(s.cost))
	for i := range s.cost {
		costs[i] = s.cost[i].Load()
	}
	return costs
}

// VertexState is a snapshot of one vertex for debugging output
type VertexState struct {
	Cost         int32
	UpdatingCost int32
	ParentCount  int32
	MaxVertex    int32
	Masked       bool
}

func (s *State) Vertex(g, v int) VertexState {
	i := s.batch.GlobalVertex(g, v)
	return VertexState{
		Cost:         s.cost[i].Load(),
		UpdatingCost: s.updatingCost[i].Load(),
		ParentCount:  s.parentCount[i].Load(),
		MaxVertex:    s.maxVertex[i].Load(),
		Masked:       s.mask[i].Load(),
	}
}

// atomicMin reports whether value was stored
func atomicMin(target *atomic.Int32, value int32) bool {
	for {
		current := target.Load()
		if value >= current {
			return false
		}
		if target.CompareAndSwap(current, value) {
			return true
		}
	}
}

func atomicMax(target *atomic.Int32, value int32) {
	for {
		current := target.Load()
		if value <= current || target.CompareAndSwap(current, value) {
			return
		}
	}
}
