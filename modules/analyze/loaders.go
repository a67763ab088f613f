package analyze

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lkarlslund/pathcost/modules/export"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/recordio"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/snapshot"
	"github.com/pkg/errors"
)

type Format int

const (
	FormatRecord Format = iota
	FormatJSON
	FormatSnapshot
)

// FormatOf picks a file format from the extension, anything unknown is the
// plain record format
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".snapshot", ".snap":
		return FormatSnapshot
	}
	return FormatRecord
}

func Load(path string) (*graph.Batch, error) {
	switch FormatOf(path) {
	case FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "opening batch")
		}
		defer f.Close()
		b, err := export.ReadBatch(f)
		return b, errors.Wrapf(err, "reading %v", path)
	case FormatSnapshot:
		return snapshot.ReadFile(path)
	}
	return recordio.ReadFile(path)
}

// Save writes the computed batch. JSON output holds the per instance results
// rather than the batch itself.
func Save(path string, b *graph.Batch, result *relax.Result) error {
	switch FormatOf(path) {
	case FormatJSON:
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		if err = export.WriteResult(f, export.Result(b, result)); err != nil {
			f.Close()
			return errors.Wrapf(err, "writing %v", path)
		}
		return errors.Wrapf(f.Close(), "closing %v", path)
	case FormatSnapshot:
		return snapshot.WriteFile(path, b)
	}
	return recordio.WriteFile(path, b)
}
