package recordio

import (
	"io"
	"os"
	"path/filepath"

	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

func ReadFile(path string) (*graph.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening record file")
	}
	defer f.Close()

	var r io.Reader = f
	if fi, err := f.Stat(); err == nil {
		bar := progressbar.NewOptions64(fi.Size(),
			progressbar.OptionSetDescription("Loading "+filepath.Base(path)),
			progressbar.OptionSetVisibility(ui.IsTerminal()),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		r = io.TeeReader(f, bar)
	}

	b, err := Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", path)
	}
	ui.Debug().Msgf("Loaded %v instances of %v vertices and %v edges from %v", b.GraphCount, b.VertexCount, b.EdgeCount, path)
	return b, nil
}

func WriteFile(path string, b *graph.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating record file")
	}
	if err = Write(f, b); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %v", path)
	}
	return errors.Wrapf(f.Close(), "closing %v", path)
}
