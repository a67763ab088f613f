package graph

import (
	"reflect"
	"slices"
	"testing"
)

type testPair struct {
	from, to int32
}

func sortSCC(sccs [][]int) {
	for _, scc := range sccs {
		slices.Sort(scc)
	}
	slices.SortFunc(sccs, func(a, b []int) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		for i := range a {
			if a[i] != b[i] {
				return a[i] - b[i]
			}
		}
		return 0
	})
}

// batchFromPairs builds a single instance batch with unit weights, all OR
// except the listed AND vertices, and vertex 0 as the source
func batchFromPairs(t *testing.T, vertexCount int, pairs []testPair, and ...int) *Batch {
	t.Helper()
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{Source: p.from, Target: p.to, Weights: []int32{1}}
	}
	kinds := make([]int32, vertexCount)
	for v := range kinds {
		kinds[v] = -1
	}
	for _, v := range and {
		kinds[v] = 0
	}
	b, err := FromEdges(vertexCount, edges, kinds, [][]int32{{0}})
	if err != nil {
		t.Fatalf("FromEdges() error = %v", err)
	}
	return b
}

var sccTests = []struct {
	name  string
	edges []testPair
	want  [][]int
}{
	{
		name: "simple",
		edges: []testPair{
			{1, 2},
			{2, 3},
			{3, 1},
			{3, 4},
			{4, 5},
			{5, 4},
		},
		want: [][]int{
			{0},
			{1, 2, 3},
			{4, 5},
		},
	},
	{
		name: "single nodes",
		edges: []testPair{
			{1, 2},
			{2, 3},
			{4, 5},
		},
		want: [][]int{
			{0},
			{1},
			{2},
			{3},
			{4},
			{5},
		},
	},
	{
		name: "complex",
		edges: []testPair{
			{1, 2},
			{2, 3},
			{3, 1},
			{3, 4},
			{4, 5},
			{5, 6},
			{6, 4},
			{7, 6},
			{7, 8},
			{8, 7},
			{8, 9},
			{9, 10},
			{10, 11},
			{11, 9},
			{12, 11},
		},
		want: [][]int{
			{0},
			{12},
			{7, 8},
			{1, 2, 3},
			{4, 5, 6},
			{9, 10, 11},
		},
	},
}

func TestStronglyConnected(t *testing.T) {
	for _, tt := range sccTests {
		t.Run(tt.name, func(t *testing.T) {
			var vertexCount int32
			for _, p := range tt.edges {
				vertexCount = max(vertexCount, p.from+1, p.to+1)
			}
			b := batchFromPairs(t, int(vertexCount), tt.edges)

			include := make([]bool, b.VertexCount)
			for v := range include {
				include[v] = true
			}
			got := b.stronglyConnected(include)

			sortSCC(got)
			sortSCC(tt.want)

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stronglyConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckAndAcyclic(t *testing.T) {
	tests := []struct {
		name    string
		edges   []testPair
		and     []int
		wantErr bool
	}{
		{
			name:  "dag with and",
			edges: []testPair{{0, 1}, {0, 2}, {1, 3}, {2, 3}},
			and:   []int{3},
		},
		{
			name:  "or cycle",
			edges: []testPair{{0, 1}, {1, 2}, {2, 1}},
		},
		{
			name:    "and on cycle",
			edges:   []testPair{{0, 1}, {1, 2}, {2, 1}},
			and:     []int{2},
			wantErr: true,
		},
		{
			name:    "and self loop",
			edges:   []testPair{{0, 1}, {1, 1}},
			and:     []int{1},
			wantErr: true,
		},
		{
			name:  "and downstream of cycle",
			edges: []testPair{{0, 1}, {1, 2}, {2, 1}, {2, 3}, {0, 3}},
			and:   []int{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vertexCount int32
			for _, p := range tt.edges {
				vertexCount = max(vertexCount, p.from+1, p.to+1)
			}
			b := batchFromPairs(t, int(vertexCount), tt.edges, tt.and...)
			err := b.CheckAndAcyclic()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckAndAcyclic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTopologicalOrder(t *testing.T) {
	b := batchFromPairs(t, 5, []testPair{{0, 2}, {2, 1}, {1, 3}, {3, 4}, {0, 4}})
	order, leftovers := b.TopologicalOrder()
	if len(leftovers) != 0 {
		t.Fatalf("TopologicalOrder() leftovers = %v", leftovers)
	}
	if want := []int{0, 2, 1, 3, 4}; !reflect.DeepEqual(order, want) {
		t.Errorf("TopologicalOrder() = %v, want %v", order, want)
	}
}
