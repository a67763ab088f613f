// Package export converts batches and results into formats meant for other
// tools: JSON documents and Mathematica graph expressions.
package export

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/relax"
)

var qjson = jsoniter.ConfigCompatibleWithStandardLibrary

// BatchJSON is the edge list form of a batch, used for uploads
type BatchJSON struct {
	VertexCount int `json:"vertexCount"`
	// MaxVertexArray is -1 for OR vertices, otherwise the AND baseline
	MaxVertexArray []int32      `json:"maxVertexArray"`
	Sources        [][]int32    `json:"sources"`
	Edges          []graph.Edge `json:"edges"`
}

func FromBatch(b *graph.Batch) BatchJSON {
	return BatchJSON{
		VertexCount:    b.VertexCount,
		MaxVertexArray: b.MaxVertexArray,
		Sources:        b.SourceArray,
		Edges:          b.Edges(),
	}
}

func (bj BatchJSON) ToBatch() (*graph.Batch, error) {
	maxVertexArray := bj.MaxVertexArray
	if maxVertexArray == nil {
		// everything OR when omitted
		maxVertexArray = make([]int32, bj.VertexCount)
		for v := range maxVertexArray {
			maxVertexArray[v] = -1
		}
	}
	return graph.FromEdges(bj.VertexCount, bj.Edges, maxVertexArray, bj.Sources)
}

type Arc struct {
	Source int32 `json:"source"`
	Target int32 `json:"target"`
}

type InstanceJSON struct {
	Instance int     `json:"instance"`
	Costs    []int32 `json:"costs"`
	// Unreachable lists vertices left at infinite cost, their entry in
	// Costs is 2147483647
	Unreachable     []int32 `json:"unreachable,omitempty"`
	ShortestParents []Arc   `json:"shortestParents"`
}

type ResultJSON struct {
	ID         string         `json:"id,omitempty"`
	Backend    string         `json:"backend,omitempty"`
	Iterations int            `json:"iterations"`
	Polls      int            `json:"polls"`
	Duration   time.Duration  `json:"duration"`
	Instances  []InstanceJSON `json:"instances"`
}

// Result converts an engine result into per instance documents
func Result(b *graph.Batch, r *relax.Result) ResultJSON {
	rj := ResultJSON{
		Iterations: r.Iterations,
		Polls:      r.Polls,
		Duration:   r.Duration,
		Instances:  make([]InstanceJSON, b.GraphCount),
	}
	for g := range rj.Instances {
		ij := InstanceJSON{
			Instance:        g,
			Costs:           b.Instance(r.Costs, g),
			ShortestParents: []Arc{},
		}
		for v, cost := range ij.Costs {
			if cost == graph.Infinity {
				ij.Unreachable = append(ij.Unreachable, int32(v))
			}
		}
		for v := 0; v < b.VertexCount; v++ {
			start, end := b.EdgeRange(v)
			for e := start; e < end; e++ {
				if r.ShortestParents[b.GlobalEdge(g, e)] {
					ij.ShortestParents = append(ij.ShortestParents, Arc{Source: int32(v), Target: b.EdgeArray[e]})
				}
			}
		}
		rj.Instances[g] = ij
	}
	return rj
}

func WriteResult(w io.Writer, rj ResultJSON) error {
	enc := qjson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rj)
}

func WriteBatch(w io.Writer, b *graph.Batch) error {
	return qjson.NewEncoder(w).Encode(FromBatch(b))
}

func ReadBatch(r io.Reader) (*graph.Batch, error) {
	var bj BatchJSON
	if err := qjson.NewDecoder(r).Decode(&bj); err != nil {
		return nil, err
	}
	return bj.ToBatch()
}
