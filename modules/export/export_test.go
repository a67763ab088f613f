package export_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/export"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *graph.Batch {
	t.Helper()
	b, err := graph.FromEdges(4, []graph.Edge{
		{Source: 0, Target: 1, Weights: []int32{3, 1}},
		{Source: 0, Target: 2, Weights: []int32{2, 1}},
		{Source: 1, Target: 2, Weights: []int32{6, 1}},
	}, []int32{-1, -1, 0, -1}, [][]int32{{0}, {1}})
	require.NoError(t, err)
	return b
}

func TestMathematica(t *testing.T) {
	b := sample(t)
	result, err := relax.NewEngine(backend.Serial{}).Run(context.Background(), b)
	require.NoError(t, err)

	want := `Graph[{0 \[DirectedEdge] 1, 0 \[DirectedEdge] 2, 1 \[DirectedEdge] 2}, ` +
		`VertexLabels -> {0 -> 0 [0], 1 -> 1 [3], 2 -> 2 [9], 3 -> 3 [inf]}, ` +
		`VertexShapeFunction -> {0 -> "Star", 2 -> "Square"}, ` +
		`VertexSize -> Large, EdgeShapeFunction -> GraphElementData[{"CarvedArrow", "ArrowSize" -> .02}]]`
	assert.Equal(t, want, export.Mathematica(b, result.Costs, 0))

	// second instance is numbered after the first, vertex 0 is unreachable
	second := export.Mathematica(b, result.Costs, 1)
	assert.True(t, strings.HasPrefix(second, `Graph[{4 \[DirectedEdge] 5, `), second)
	assert.Contains(t, second, `4 -> 4 [inf], 5 -> 5 [0]`)
	assert.Contains(t, second, `5 -> "Star", 6 -> "Square"`)
}

func TestMathematicaWithoutCosts(t *testing.T) {
	out := export.Mathematica(sample(t), nil, 0)
	assert.Contains(t, out, `1 -> 1 [inf]`)
}

func TestBatchJSONRoundTrip(t *testing.T) {
	b := sample(t)
	var buf bytes.Buffer
	require.NoError(t, export.WriteBatch(&buf, b))

	got, err := export.ReadBatch(&buf)
	require.NoError(t, err)
	assert.Equal(t, b.VertexArray, got.VertexArray)
	assert.Equal(t, b.EdgeArray, got.EdgeArray)
	assert.Equal(t, b.WeightArray, got.WeightArray)
	assert.Equal(t, b.MaxVertexArray, got.MaxVertexArray)
}

func TestBatchJSONDefaultsToOr(t *testing.T) {
	got, err := export.ReadBatch(strings.NewReader(`{"vertexCount":2,"sources":[[0]],"edges":[{"source":0,"target":1,"weights":[4]}]}`))
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, -1}, got.MaxVertexArray)
}

func TestResultJSON(t *testing.T) {
	b := sample(t)
	result, err := relax.NewEngine(backend.Serial{}).Run(context.Background(), b)
	require.NoError(t, err)

	rj := export.Result(b, result)
	require.Len(t, rj.Instances, 2)
	assert.Equal(t, []int32{0, 3, 9, graph.Infinity}, rj.Instances[0].Costs)
	assert.Equal(t, []int32{3}, rj.Instances[0].Unreachable)
	assert.Equal(t, []export.Arc{{Source: 0, Target: 1}}, rj.Instances[0].ShortestParents)

	var buf bytes.Buffer
	require.NoError(t, export.WriteResult(&buf, rj))
	assert.Contains(t, buf.String(), `"unreachable"`)
	assert.Contains(t, buf.String(), `"shortestParents"`)
}
