package export

import (
	"strconv"
	"strings"

	"github.com/lkarlslund/pathcost/modules/graph"
)

func costString(cost int32) string {
	if cost == graph.Infinity {
		return "inf"
	}
	return strconv.FormatInt(int64(cost), 10)
}

// Mathematica renders instance g as a Graph[] expression with the cost of
// every vertex as its label. Vertices are numbered globally, sources are drawn
// as stars and AND vertices as squares. Labels read "inf" without costs.
func Mathematica(b *graph.Batch, costs []int32, g int) string {
	var edges, labels, shapes []string

	for v := 0; v < b.VertexCount; v++ {
		start, end := b.EdgeRange(v)
		for e := start; e < end; e++ {
			edges = append(edges, strconv.Itoa(b.GlobalVertex(g, v))+` \[DirectedEdge] `+strconv.Itoa(b.GlobalVertex(g, int(b.EdgeArray[e]))))
		}
	}

	for v := 0; v < b.VertexCount; v++ {
		gv := b.GlobalVertex(g, v)
		cost := graph.Infinity
		if costs != nil {
			cost = costs[gv]
		}
		id := strconv.Itoa(gv)
		labels = append(labels, id+" -> "+id+" ["+costString(cost)+"]")

		switch {
		case b.IsSource(g, v):
			shapes = append(shapes, id+` -> "Star"`)
		case b.IsAnd(g, v):
			shapes = append(shapes, id+` -> "Square"`)
		}
	}

	var sb strings.Builder
	sb.WriteString("Graph[{")
	sb.WriteString(strings.Join(edges, ", "))
	sb.WriteString("}, VertexLabels -> {")
	sb.WriteString(strings.Join(labels, ", "))
	sb.WriteString("}, VertexShapeFunction -> {")
	sb.WriteString(strings.Join(shapes, ", "))
	sb.WriteString(`}, VertexSize -> Large, EdgeShapeFunction -> GraphElementData[{"CarvedArrow", "ArrowSize" -> .02}]]`)
	return sb.String()
}
