package graph

import (
	"errors"
	"fmt"
	"math"
)

// Infinity is the fixed-point cost of a vertex that no source can reach
const Infinity int32 = math.MaxInt32

var (
	ErrInvalidBatch = errors.New("invalid graph batch")
	ErrAndCycle     = errors.New("AND vertex takes part in a dependency cycle")
)

// Batch holds GraphCount graph instances that share one topology in CSR form.
// Only weights (and optionally sources) differ between instances. Vertex v of
// instance g lives at global index g*VertexCount+v, edges likewise.
type Batch struct {
	GraphCount  int
	VertexCount int
	EdgeCount   int

	VertexArray    []int32 // len VertexCount, offset of first outgoing edge
	EdgeArray      []int32 // len EdgeCount, target vertex, sorted by source
	WeightArray    []int32 // len GraphCount*EdgeCount
	MaxVertexArray []int32 // len VertexCount, < 0 is OR, >= 0 is AND and its baseline

	// SourceArray lists the source vertices of every instance
	SourceArray [][]int32

	// ParentCountArray is the number of incoming edges per vertex
	ParentCountArray []int32

	// Inverse CSR, filled by Transpose
	InverseVertexArray []int32
	InverseEdgeArray   []int32 // parent vertex per incoming edge
	InverseEdgeIndex   []int32 // forward edge index per inverse slot
	InverseWeightArray []int32 // len GraphCount*EdgeCount

	// Results of the last computation, nil until SetResults is called
	CostArray            []int32
	ShortestParentsArray []bool

	sourceFlags []bool
	transposed  bool
}

// New builds a batch from a forward CSR and validates it. The parent counts
// are derived from edgeArray, and sources are given OR semantics in the
// instances they belong to.
func New(graphCount int, vertexArray, edgeArray, weightArray, maxVertexArray []int32, sources [][]int32) (*Batch, error) {
	b := &Batch{
		GraphCount:     graphCount,
		VertexCount:    len(vertexArray),
		EdgeCount:      len(edgeArray),
		VertexArray:    vertexArray,
		EdgeArray:      edgeArray,
		WeightArray:    weightArray,
		MaxVertexArray: maxVertexArray,
		SourceArray:    sources,
	}
	if err := b.checkShape(); err != nil {
		return nil, err
	}
	b.ParentCountArray = CountParents(b.VertexCount, b.EdgeArray)
	b.indexSources()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// CountParents returns the number of edges pointing at every vertex
func CountParents(vertexCount int, edgeArray []int32) []int32 {
	parents := make([]int32, vertexCount)
	for _, target := range edgeArray {
		if target >= 0 && int(target) < vertexCount {
			parents[target]++
		}
	}
	return parents
}

func (b *Batch) checkShape() error {
	switch {
	case b.GraphCount <= 0:
		return fmt.Errorf("%w: graph count %v must be positive", ErrInvalidBatch, b.GraphCount)
	case b.VertexCount == 0:
		return fmt.Errorf("%w: no vertices", ErrInvalidBatch)
	case len(b.MaxVertexArray) != b.VertexCount:
		return fmt.Errorf("%w: %v vertex kinds for %v vertices", ErrInvalidBatch, len(b.MaxVertexArray), b.VertexCount)
	case len(b.WeightArray) != b.GraphCount*b.EdgeCount:
		return fmt.Errorf("%w: %v weights, expected %v", ErrInvalidBatch, len(b.WeightArray), b.GraphCount*b.EdgeCount)
	case len(b.SourceArray) != b.GraphCount:
		return fmt.Errorf("%w: sources given for %v instances, expected %v", ErrInvalidBatch, len(b.SourceArray), b.GraphCount)
	}
	return nil
}

func (b *Batch) indexSources() {
	b.sourceFlags = make([]bool, b.GraphCount*b.VertexCount)
	for g, sources := range b.SourceArray {
		for _, s := range sources {
			if s >= 0 && int(s) < b.VertexCount {
				b.sourceFlags[b.GlobalVertex(g, int(s))] = true
			}
		}
	}
}

// Validate checks every structural invariant of the batch
func (b *Batch) Validate() error {
	if err := b.checkShape(); err != nil {
		return err
	}
	if b.VertexArray[0] != 0 {
		return fmt.Errorf("%w: first vertex starts at edge %v", ErrInvalidBatch, b.VertexArray[0])
	}
	var last int32
	for v, offset := range b.VertexArray {
		if offset < last || int(offset) > b.EdgeCount {
			return fmt.Errorf("%w: vertex %v has edge offset %v (previous %v, edge count %v)", ErrInvalidBatch, v, offset, last, b.EdgeCount)
		}
		last = offset
	}
	for e, target := range b.EdgeArray {
		if target < 0 || int(target) >= b.VertexCount {
			return fmt.Errorf("%w: edge %v points at vertex %v", ErrInvalidBatch, e, target)
		}
	}
	for g, sources := range b.SourceArray {
		if len(sources) == 0 {
			return fmt.Errorf("%w: instance %v has no sources", ErrInvalidBatch, g)
		}
		seen := make(map[int32]struct{}, len(sources))
		for _, s := range sources {
			if s < 0 || int(s) >= b.VertexCount {
				return fmt.Errorf("%w: instance %v has source %v outside the graph", ErrInvalidBatch, g, s)
			}
			if _, dup := seen[s]; dup {
				return fmt.Errorf("%w: instance %v lists source %v twice", ErrInvalidBatch, g, s)
			}
			seen[s] = struct{}{}
		}
	}
	for _, w := range b.WeightArray {
		if w < 0 {
			return fmt.Errorf("%w: negative edge weight %v", ErrInvalidBatch, w)
		}
	}
	counted := CountParents(b.VertexCount, b.EdgeArray)
	if len(b.ParentCountArray) != b.VertexCount {
		return fmt.Errorf("%w: parent counts missing", ErrInvalidBatch)
	}
	for v := range counted {
		if counted[v] != b.ParentCountArray[v] {
			return fmt.Errorf("%w: vertex %v has parent count %v, edges say %v", ErrInvalidBatch, v, b.ParentCountArray[v], counted[v])
		}
	}
	return nil
}

func (b *Batch) GlobalVertex(g, v int) int {
	return g*b.VertexCount + v
}

func (b *Batch) GlobalEdge(g, e int) int {
	return g*b.EdgeCount + e
}

// EdgeRange returns the outgoing edge indices [start, end) of vertex v
func (b *Batch) EdgeRange(v int) (start, end int) {
	start = int(b.VertexArray[v])
	if v+1 < b.VertexCount {
		return start, int(b.VertexArray[v+1])
	}
	return start, b.EdgeCount
}

// InverseEdgeRange returns the incoming edge slots [start, end) of vertex v
func (b *Batch) InverseEdgeRange(v int) (start, end int) {
	start = int(b.InverseVertexArray[v])
	if v+1 < b.VertexCount {
		return start, int(b.InverseVertexArray[v+1])
	}
	return start, b.EdgeCount
}

// EdgeSource finds the source vertex of forward edge e, which is the last
// vertex whose offset is not past e
func (b *Batch) EdgeSource(e int) int {
	lo, hi := 0, b.VertexCount-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if int(b.VertexArray[mid]) <= e {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (b *Batch) IsSource(g, v int) bool {
	return b.sourceFlags[b.GlobalVertex(g, v)]
}

// IsAnd reports whether vertex v aggregates by maximum in instance g. Sources
// are always OR.
func (b *Batch) IsAnd(g, v int) bool {
	return b.MaxVertexArray[v] >= 0 && !b.IsSource(g, v)
}

// Weight of forward edge e in instance g
func (b *Batch) Weight(g, e int) int32 {
	return b.WeightArray[b.GlobalEdge(g, e)]
}

// AddCost adds a weight to a cost, saturating at Infinity
func AddCost(cost, weight int32) int32 {
	if cost == Infinity {
		return Infinity
	}
	sum := int64(cost) + int64(weight)
	if sum >= int64(Infinity) {
		return Infinity
	}
	return int32(sum)
}

// SetResults attaches computed costs and shortest parent tags to the batch
func (b *Batch) SetResults(costs []int32, shortestParents []bool) error {
	if len(costs) != b.GraphCount*b.VertexCount {
		return fmt.Errorf("%w: %v costs for %v vertices", ErrInvalidBatch, len(costs), b.GraphCount*b.VertexCount)
	}
	if shortestParents != nil && len(shortestParents) != b.GraphCount*b.EdgeCount {
		return fmt.Errorf("%w: %v parent tags for %v edges", ErrInvalidBatch, len(shortestParents), b.GraphCount*b.EdgeCount)
	}
	b.CostArray = costs
	b.ShortestParentsArray = shortestParents
	return nil
}

// HasResults reports whether costs have been attached
func (b *Batch) HasResults() bool {
	return b.CostArray != nil
}

// Transposed reports whether the inverse CSR has been built
func (b *Batch) Transposed() bool {
	return b.transposed
}

// Instance returns the costs of instance g out of a global cost array
func (b *Batch) Instance(costs []int32, g int) []int32 {
	return costs[g*b.VertexCount : (g+1)*b.VertexCount]
}

// Statistics counts AND vertices and edges, used for logging
func (b *Batch) Statistics() (andVertices, orVertices int) {
	for _, kind := range b.MaxVertexArray {
		if kind >= 0 {
			andVertices++
		} else {
			orVertices++
		}
	}
	return
}
