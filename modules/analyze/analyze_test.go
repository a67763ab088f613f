package analyze

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/recordio"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0 -> 1 -> 2 chain with an AND vertex 3 fed by 1 and 2
func testBatch(t *testing.T) *graph.Batch {
	t.Helper()
	b, err := graph.FromEdges(4, []graph.Edge{
		{Source: 0, Target: 1, Weights: []int32{5}},
		{Source: 1, Target: 2, Weights: []int32{7}},
		{Source: 1, Target: 3, Weights: []int32{1}},
		{Source: 2, Target: 3, Weights: []int32{2}},
	}, []int32{-1, -1, -1, 0}, [][]int32{{0}})
	require.NoError(t, err)
	return b
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestParseBenchmarkArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    graph.GenerateOptions
		wantErr bool
	}{
		{
			name: "defaults",
			want: graph.DefaultGenerateOptions(),
		},
		{
			name: "all",
			args: []string{"10", "2", "50", "4", "0.25"},
			want: func() graph.GenerateOptions {
				o := graph.DefaultGenerateOptions()
				o.Graphs, o.Sources, o.Vertices, o.ChildrenPerVertex, o.ProbMax = 10, 2, 50, 4, 0.25
				return o
			}(),
		},
		{
			name: "prefix",
			args: []string{"7"},
			want: func() graph.GenerateOptions {
				o := graph.DefaultGenerateOptions()
				o.Graphs = 7
				return o
			}(),
		},
		{name: "not a number", args: []string{"x"}, wantErr: true},
		{name: "probability too large", args: []string{"1", "1", "1", "1", "1.5"}, wantErr: true},
		{name: "too many", args: []string{"1", "1", "1", "1", "0", "1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.DefaultGenerateOptions()
			err := ParseBenchmarkArgs(tt.args, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("a/b.JSON"))
	assert.Equal(t, FormatSnapshot, FormatOf("b.snapshot"))
	assert.Equal(t, FormatRecord, FormatOf("b.txt"))
	assert.Equal(t, FormatRecord, FormatOf("noextension"))
}

func TestInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	got, err := Inputs([]string{dir}, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}, got)

	single := filepath.Join(dir, "c.json")
	got, err = Inputs([]string{single}, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{single}, got)

	_, err = Inputs([]string{filepath.Join(dir, "missing")}, "*")
	assert.Error(t, err)
}

func TestComputeFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "batch.txt")
	require.NoError(t, recordio.WriteFile(input, testBatch(t)))

	for _, output := range []string{"out.txt", "out.snapshot", "out.json"} {
		t.Run(output, func(t *testing.T) {
			cmd, out := testCommand()
			target := filepath.Join(dir, output)
			err := computeFile(cmd, input, DefaultSettings(), computeOptions{output: target, mathematica: true})
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Graph[")

			if FormatOf(target) == FormatJSON {
				data, err := os.ReadFile(target)
				require.NoError(t, err)
				assert.Contains(t, string(data), "shortestParents")
				return
			}
			b, err := Load(target)
			require.NoError(t, err)
			require.True(t, b.HasResults())
			assert.Equal(t, []int32{0, 5, 12, 14}, b.CostArray)
		})
	}
}

func TestComputeRejectsAndCycle(t *testing.T) {
	b, err := graph.FromEdges(3, []graph.Edge{
		{Source: 0, Target: 1, Weights: []int32{1}},
		{Source: 1, Target: 2, Weights: []int32{1}},
		{Source: 2, Target: 1, Weights: []int32{1}},
	}, []int32{-1, 0, -1}, [][]int32{{0}})
	require.NoError(t, err)

	_, err = Compute(context.Background(), DefaultSettings().Engine(), b, true)
	assert.ErrorIs(t, err, graph.ErrAndCycle)
}

func TestBlocked(t *testing.T) {
	// 2 is an AND vertex waiting on 3, which no source reaches, and 4 is isolated
	b, err := graph.FromEdges(5, []graph.Edge{
		{Source: 0, Target: 1, Weights: []int32{1}},
		{Source: 1, Target: 2, Weights: []int32{1}},
		{Source: 3, Target: 2, Weights: []int32{1}},
	}, []int32{-1, -1, 0, -1, -1}, [][]int32{{0}})
	require.NoError(t, err)

	s := DefaultSettings()
	s.Workers = 1
	result, err := Compute(context.Background(), s.Engine(), b, false)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, graph.Infinity, graph.Infinity, graph.Infinity}, result.Costs)

	disconnected, blocked := Blocked(b, result.Costs)
	assert.Equal(t, 2, disconnected)
	assert.Equal(t, 1, blocked)
	assert.Equal(t, 3, Unreachable(result.Costs))
}

func TestRecord(t *testing.T) {
	b := testBatch(t)
	s := DefaultSettings()
	s.Workers = 1
	result, err := Compute(context.Background(), s.Engine(), b, false)
	require.NoError(t, err)

	r := Record("test", s, b, result, nil)
	assert.Equal(t, "serial", r.Backend)
	assert.Equal(t, 4, r.VertexCount)
	assert.Equal(t, 1, r.AndVertices)
	assert.Equal(t, result.Iterations, r.Iterations)
	assert.Zero(t, r.Unreachable)
	assert.NotEmpty(t, r.ID())
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "batch.txt")
	output := filepath.Join(dir, "batch.snapshot")
	require.NoError(t, recordio.WriteFile(input, testBatch(t)))

	require.NoError(t, Snapshot(context.Background(), input, output, 2))
	b, err := Load(output)
	require.NoError(t, err)
	assert.True(t, b.Transposed())
	assert.Equal(t, 4, b.VertexCount)
}

func TestBenchmark(t *testing.T) {
	opts := DefaultBenchmarkOptions()
	opts.Generate.Graphs = 4
	opts.Generate.Vertices = 40
	opts.Generate.ProbMax = 0.3
	opts.Validate = 4

	runs, err := Benchmark(context.Background(), opts, DefaultSettings())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "benchmark", runs[0].Origin)
	assert.True(t, strings.HasPrefix(runs[1].Origin, "benchmark reroll"))
	for _, r := range runs {
		assert.Equal(t, 4, r.Validated)
		assert.Zero(t, r.Mismatches)
		assert.NotEmpty(t, r.Host)
	}
}
