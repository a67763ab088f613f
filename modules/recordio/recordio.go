// Package recordio reads and writes batches in the comma terminated text
// format. Every record is a list of decimal integers each followed by a comma,
// written on its own line:
//
//	graphCount,vertexCount,edgeCount,sourceCount,
//	vertexArray
//	maxVertexArray
//	sourceArray          (graphCount*vertexCount flags, 1 marks a source)
//	edgeArray
//	weightArray          (graphCount*edgeCount)
//	costArray            (optional, graphCount*vertexCount)
//	shortestParentsArray (optional, graphCount*edgeCount flags)
//
// Line breaks are not significant when reading. 2147483647 is an infinite
// cost.
package recordio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lkarlslund/pathcost/modules/graph"
)

var ErrMalformedRecord = errors.New("malformed record")

// preallocation cap, so a lying header cannot allocate gigabytes up front
const maxPrealloc = 1 << 20

type tokenizer struct {
	r *bufio.Reader
}

// next returns io.EOF only when nothing but whitespace is left
func (t *tokenizer) next(record string) (int32, error) {
	token, err := t.r.ReadString(',')
	if err == io.EOF {
		if strings.TrimSpace(token) == "" {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: %v: unterminated value %q", ErrMalformedRecord, record, strings.TrimSpace(token))
	}
	if err != nil {
		return 0, err
	}
	token = strings.TrimSpace(token[:len(token)-1])
	value, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %q is not an integer", ErrMalformedRecord, record, token)
	}
	return int32(value), nil
}

func (t *tokenizer) record(name string, count int) ([]int32, error) {
	values := make([]int32, 0, min(count, maxPrealloc))
	for len(values) < count {
		value, err := t.next(name)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %v: found %v values, expected %v", ErrMalformedRecord, name, len(values), count)
		}
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Read parses a batch. Costs and shortest parent tags are attached when the
// input carries them.
func Read(r io.Reader) (*graph.Batch, error) {
	t := tokenizer{r: bufio.NewReaderSize(r, 1<<16)}

	header, err := t.record("header", 4)
	if err != nil {
		return nil, err
	}
	graphCount, vertexCount, edgeCount, sourceCount := int(header[0]), int(header[1]), int(header[2]), int(header[3])
	if graphCount <= 0 || vertexCount <= 0 || edgeCount < 0 || sourceCount <= 0 || sourceCount > vertexCount {
		return nil, fmt.Errorf("%w: header: invalid counts %v", ErrMalformedRecord, header)
	}

	vertexArray, err := t.record("vertexArray", vertexCount)
	if err != nil {
		return nil, err
	}
	maxVertexArray, err := t.record("maxVertexArray", vertexCount)
	if err != nil {
		return nil, err
	}
	sourceFlags, err := t.record("sourceArray", graphCount*vertexCount)
	if err != nil {
		return nil, err
	}
	sources, err := decodeSources(sourceFlags, graphCount, vertexCount, sourceCount)
	if err != nil {
		return nil, err
	}
	edgeArray, err := t.record("edgeArray", edgeCount)
	if err != nil {
		return nil, err
	}
	weightArray, err := t.record("weightArray", graphCount*edgeCount)
	if err != nil {
		return nil, err
	}

	b, err := graph.New(graphCount, vertexArray, edgeArray, weightArray, maxVertexArray, sources)
	if err != nil {
		return nil, err
	}

	// results are optional, but when present they must be complete
	first, err := t.next("costArray")
	if err == io.EOF {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	rest, err := t.record("costArray", graphCount*vertexCount-1)
	if err != nil {
		return nil, err
	}
	costs := append([]int32{first}, rest...)

	tags, err := t.record("shortestParentsArray", graphCount*edgeCount)
	if err != nil {
		return nil, err
	}
	shortestParents := make([]bool, len(tags))
	for i, tag := range tags {
		if tag != 0 && tag != 1 {
			return nil, fmt.Errorf("%w: shortestParentsArray: flag %v is neither 0 nor 1", ErrMalformedRecord, tag)
		}
		shortestParents[i] = tag == 1
	}

	if _, err = t.next("trailer"); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("%w: trailing values after shortestParentsArray", ErrMalformedRecord)
		}
		return nil, err
	}

	if err = b.SetResults(costs, shortestParents); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeSources(flags []int32, graphCount, vertexCount, sourceCount int) ([][]int32, error) {
	sources := make([][]int32, graphCount)
	for g := range sources {
		sources[g] = make([]int32, 0, sourceCount)
		for v := 0; v < vertexCount; v++ {
			switch flags[g*vertexCount+v] {
			case 0:
			case 1:
				sources[g] = append(sources[g], int32(v))
			default:
				return nil, fmt.Errorf("%w: sourceArray: flag %v is neither 0 nor 1", ErrMalformedRecord, flags[g*vertexCount+v])
			}
		}
		if len(sources[g]) != sourceCount {
			return nil, fmt.Errorf("%w: sourceArray: instance %v has %v sources, header says %v", ErrMalformedRecord, g, len(sources[g]), sourceCount)
		}
	}
	return sources, nil
}

// Write stores a batch, including its results when it has any
func Write(w io.Writer, b *graph.Batch) error {
	bw := bufio.NewWriterSize(w, 1<<16)

	sourceCount := len(b.SourceArray[0])
	for g, sources := range b.SourceArray {
		if len(sources) != sourceCount {
			return fmt.Errorf("%w: instance %v has %v sources, instance 0 has %v", graph.ErrInvalidBatch, g, len(sources), sourceCount)
		}
	}

	flags := make([]int32, b.GraphCount*b.VertexCount)
	for g, sources := range b.SourceArray {
		for _, s := range sources {
			flags[b.GlobalVertex(g, int(s))] = 1
		}
	}

	var buf []byte
	line := func(values []int32) {
		buf = buf[:0]
		for _, v := range values {
			buf = strconv.AppendInt(buf, int64(v), 10)
			buf = append(buf, ',')
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	line([]int32{int32(b.GraphCount), int32(b.VertexCount), int32(b.EdgeCount), int32(sourceCount)})
	line(b.VertexArray)
	line(b.MaxVertexArray)
	line(flags)
	line(b.EdgeArray)
	line(b.WeightArray)

	if b.HasResults() {
		line(b.CostArray)
		tags := make([]int32, b.GraphCount*b.EdgeCount)
		for i, tagged := range b.ShortestParentsArray {
			if tagged {
				tags[i] = 1
			}
		}
		line(tags)
	}

	return bw.Flush()
}
