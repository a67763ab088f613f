// Package snapshot stores batches as lz4 compressed msgpack, including the
// inverse CSR so a loaded batch does not need to be transposed again.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lkarlslund/pathcost/modules/graph"
	pkgerrors "github.com/pkg/errors"
	"github.com/pierrec/lz4/v4"
	"github.com/tinylib/msgp/msgp"
)

const (
	magic   = "pathcost-snapshot"
	version = 1
)

var ErrNotSnapshot = errors.New("not a pathcost snapshot")

// encoder keeps the first error, so the field list below reads straight
type encoder struct {
	w   *msgp.Writer
	err error
}

func (e *encoder) int(v int) {
	if e.err == nil {
		e.err = e.w.WriteInt(v)
	}
}

func (e *encoder) bool(v bool) {
	if e.err == nil {
		e.err = e.w.WriteBool(v)
	}
}

func (e *encoder) int32s(values []int32) {
	if e.err == nil {
		e.err = e.w.WriteArrayHeader(uint32(len(values)))
	}
	for _, v := range values {
		if e.err != nil {
			return
		}
		e.err = e.w.WriteInt32(v)
	}
}

func (e *encoder) bools(values []bool) {
	if e.err == nil {
		e.err = e.w.WriteArrayHeader(uint32(len(values)))
	}
	for _, v := range values {
		if e.err != nil {
			return
		}
		e.err = e.w.WriteBool(v)
	}
}

// array headers are untrusted, allocation grows with the data actually read
const maxPrealloc = 1 << 20

type decoder struct {
	r   *msgp.Reader
	err error
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	var v int
	v, d.err = d.r.ReadInt()
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	var v bool
	v, d.err = d.r.ReadBool()
	return v
}

func (d *decoder) int32s() []int32 {
	if d.err != nil {
		return nil
	}
	var n uint32
	if n, d.err = d.r.ReadArrayHeader(); d.err != nil {
		return nil
	}
	values := make([]int32, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		var v int32
		if v, d.err = d.r.ReadInt32(); d.err != nil {
			return nil
		}
		values = append(values, v)
	}
	return values
}

func (d *decoder) bools() []bool {
	if d.err != nil {
		return nil
	}
	var n uint32
	if n, d.err = d.r.ReadArrayHeader(); d.err != nil {
		return nil
	}
	values := make([]bool, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		var v bool
		if v, d.err = d.r.ReadBool(); d.err != nil {
			return nil
		}
		values = append(values, v)
	}
	return values
}

func Write(w io.Writer, b *graph.Batch) error {
	compressed := lz4.NewWriter(w)
	lz4options := []lz4.Option{
		lz4.BlockChecksumOption(true),
		lz4.ChecksumOption(true),
		lz4.CompressionLevelOption(lz4.Level9),
		lz4.ConcurrencyOption(-1),
	}
	if err := compressed.Apply(lz4options...); err != nil {
		return err
	}

	e := encoder{w: msgp.NewWriter(compressed)}
	if e.err = e.w.WriteString(magic); e.err == nil {
		e.int(version)
	}
	e.int(b.GraphCount)
	e.int32s(b.VertexArray)
	e.int32s(b.EdgeArray)
	e.int32s(b.WeightArray)
	e.int32s(b.MaxVertexArray)
	if e.err == nil {
		e.err = e.w.WriteArrayHeader(uint32(len(b.SourceArray)))
	}
	for _, sources := range b.SourceArray {
		e.int32s(sources)
	}

	e.bool(b.Transposed())
	if b.Transposed() {
		e.int32s(b.InverseVertexArray)
		e.int32s(b.InverseEdgeArray)
		e.int32s(b.InverseEdgeIndex)
	}

	e.bool(b.HasResults())
	if b.HasResults() {
		e.int32s(b.CostArray)
		e.bools(b.ShortestParentsArray)
	}

	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return e.err
	}
	return compressed.Close()
}

func Read(r io.Reader) (*graph.Batch, error) {
	d := decoder{r: msgp.NewReaderSize(lz4.NewReader(r), 4*1024*1024)}

	header, err := d.r.ReadString()
	if err != nil || header != magic {
		return nil, ErrNotSnapshot
	}
	if v := d.int(); d.err == nil && v != version {
		return nil, fmt.Errorf("%w: unsupported version %v", ErrNotSnapshot, v)
	}

	graphCount := d.int()
	vertexArray := d.int32s()
	edgeArray := d.int32s()
	weightArray := d.int32s()
	maxVertexArray := d.int32s()

	var instances uint32
	if d.err == nil {
		instances, d.err = d.r.ReadArrayHeader()
	}
	var sources [][]int32
	for i := uint32(0); i < instances && d.err == nil; i++ {
		sources = append(sources, d.int32s())
	}
	if d.err != nil {
		return nil, pkgerrors.Wrap(d.err, "decoding snapshot topology")
	}

	b, err := graph.New(graphCount, vertexArray, edgeArray, weightArray, maxVertexArray, sources)
	if err != nil {
		return nil, err
	}

	if d.bool() {
		inverseVertexArray, inverseEdgeArray, inverseEdgeIndex := d.int32s(), d.int32s(), d.int32s()
		if d.err == nil {
			if err = b.SetInverse(inverseVertexArray, inverseEdgeArray, inverseEdgeIndex); err != nil {
				return nil, err
			}
		}
	}

	if d.bool() {
		costs, shortestParents := d.int32s(), d.bools()
		if d.err == nil {
			if len(shortestParents) == 0 {
				shortestParents = nil
			}
			if err = b.SetResults(costs, shortestParents); err != nil {
				return nil, err
			}
		}
	}
	if d.err != nil {
		return nil, pkgerrors.Wrap(d.err, "decoding snapshot")
	}
	return b, nil
}

func WriteFile(path string, b *graph.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(err, "creating snapshot")
	}
	if err = Write(f, b); err != nil {
		f.Close()
		return pkgerrors.Wrapf(err, "writing snapshot %v", path)
	}
	return pkgerrors.Wrapf(f.Close(), "closing snapshot %v", path)
}

func ReadFile(path string) (*graph.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening snapshot")
	}
	defer f.Close()
	b, err := Read(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading snapshot %v", path)
	}
	return b, nil
}
