package recordio_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lkarlslund/pathcost/modules/backend"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/recordio"
	"github.com/lkarlslund/pathcost/modules/relax"
)

const sample = `2,3,2,1,
0,1,2,
-1,-1,0,
1,0,0,0,1,0,
1,2,
5,7,1,1,
`

func TestRead(t *testing.T) {
	b, err := recordio.Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if b.GraphCount != 2 || b.VertexCount != 3 || b.EdgeCount != 2 {
		t.Fatalf("Read() counts = %v/%v/%v", b.GraphCount, b.VertexCount, b.EdgeCount)
	}
	if want := [][]int32{{0}, {1}}; !reflect.DeepEqual(b.SourceArray, want) {
		t.Errorf("SourceArray = %v, want %v", b.SourceArray, want)
	}
	if want := []int32{5, 7, 1, 1}; !reflect.DeepEqual(b.WeightArray, want) {
		t.Errorf("WeightArray = %v, want %v", b.WeightArray, want)
	}
	if b.HasResults() {
		t.Error("Read() attached results that were not in the input")
	}
}

func TestReadIgnoresLineBreaks(t *testing.T) {
	b, err := recordio.Read(strings.NewReader("2,3,2,1,0,1,2,-1,-1,0,1,0,0,\r\n0,1,0,1,2,5,7,1,1,"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if want := []int32{1, 2}; !reflect.DeepEqual(b.EdgeArray, want) {
		t.Errorf("EdgeArray = %v, want %v", b.EdgeArray, want)
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short header", "2,3,"},
		{"not a number", strings.Replace(sample, "5,7", "5,x", 1)},
		{"missing weights", strings.Replace(sample, "5,7,1,1,", "5,7,1,", 1)},
		{"unterminated", strings.TrimSuffix(sample, ",\n")},
		{"bad source flag", strings.Replace(sample, "1,0,0,0,1,0,", "2,0,0,0,1,0,", 1)},
		{"source count", strings.Replace(sample, "1,0,0,0,1,0,", "1,1,0,0,1,0,", 1)},
		{"partial costs", sample + "0,5,"},
		{"trailing values", sample + "0,5,12,0,1,2,1,0,1,0,9,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recordio.Read(strings.NewReader(tt.input))
			if !errors.Is(err, recordio.ErrMalformedRecord) {
				t.Errorf("Read() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestReadInvalidBatch(t *testing.T) {
	// edge pointing at vertex 7
	input := strings.Replace(sample, "\n1,2,\n", "\n1,7,\n", 1)
	_, err := recordio.Read(strings.NewReader(input))
	if !errors.Is(err, graph.ErrInvalidBatch) {
		t.Errorf("Read() error = %v, want ErrInvalidBatch", err)
	}
}

func TestRoundTripWithResults(t *testing.T) {
	opts := graph.DefaultGenerateOptions()
	opts.Graphs = 3
	opts.Vertices = 40
	opts.Sources = 2
	opts.ProbMax = 0.3
	b, err := graph.Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	result, err := relax.NewEngine(backend.Serial{}).Run(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	if err = b.SetResults(result.Costs, result.ShortestParents); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err = recordio.Write(&buf, b); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 8 {
		t.Errorf("Write() produced %v lines, want 8", lines)
	}

	got, err := recordio.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for name, pair := range map[string][2]any{
		"VertexArray":          {b.VertexArray, got.VertexArray},
		"EdgeArray":            {b.EdgeArray, got.EdgeArray},
		"WeightArray":          {b.WeightArray, got.WeightArray},
		"MaxVertexArray":       {b.MaxVertexArray, got.MaxVertexArray},
		"SourceArray":          {sortedSources(b.SourceArray), got.SourceArray},
		"CostArray":            {b.CostArray, got.CostArray},
		"ShortestParentsArray": {b.ShortestParentsArray, got.ShortestParentsArray},
	} {
		if !reflect.DeepEqual(pair[0], pair[1]) {
			t.Errorf("%v differs after round trip", name)
		}
	}
}

// sources are stored as flags, so they come back in vertex order
func sortedSources(sources [][]int32) [][]int32 {
	result := make([][]int32, len(sources))
	for g, s := range sources {
		result[g] = append([]int32(nil), s...)
		for i := 1; i < len(result[g]); i++ {
			for j := i; j > 0 && result[g][j] < result[g][j-1]; j-- {
				result[g][j], result[g][j-1] = result[g][j-1], result[g][j]
			}
		}
	}
	return result
}

func TestFileRoundTrip(t *testing.T) {
	b, err := recordio.Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "batch.txt")
	if err = recordio.WriteFile(path, b); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := recordio.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !reflect.DeepEqual(got.EdgeArray, b.EdgeArray) || !reflect.DeepEqual(got.SourceArray, b.SourceArray) {
		t.Error("ReadFile() does not match what WriteFile() stored")
	}

	_, err = recordio.ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Error("ReadFile() on a missing file succeeded")
	}
}
