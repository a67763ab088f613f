package reference

import (
	"github.com/lkarlslund/pathcost/modules/graph"
)

const maxMismatches = 32

type Mismatch struct {
	Instance int
	Vertex   int
	Expected int32
	Got      int32
}

type Report struct {
	Instances  int // instances solved
	Vertices   int // vertices compared
	Errors     int // vertices where the costs differ
	Infinite   int // compared vertices left at Infinity
	Mismatches []Mismatch
}

func (r Report) OK() bool {
	return r.Errors == 0
}

// Compare solves up to instances instances sequentially and checks them
// against costs. Differences are counted, never returned as errors. Only the
// first few are kept in Mismatches.
func Compare(b *graph.Batch, costs []int32, instances int) Report {
	var report Report
	for g := 0; g < min(instances, b.GraphCount); g++ {
		report.Check(b, costs, g)
	}
	return report
}

// Check solves instance g and adds the comparison with costs to the report
func (r *Report) Check(b *graph.Batch, costs []int32, g int) {
	expected := Solve(b, g)
	got := b.Instance(costs, g)
	for v := range expected {
		r.Vertices++
		if expected[v] != got[v] {
			r.Errors++
			if len(r.Mismatches) < maxMismatches {
				r.Mismatches = append(r.Mismatches, Mismatch{
					Instance: g,
					Vertex:   v,
					Expected: expected[v],
					Got:      got[v],
				})
			}
		}
		if got[v] == graph.Infinity {
			r.Infinite++
		}
	}
	r.Instances++
}
