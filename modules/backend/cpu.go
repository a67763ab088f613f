package backend

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const defaultChunkSize = 1024

// CPU runs lanes on a pool of goroutines. Lanes are handed out in chunks
// through a channel, so a slow chunk does not hold up the rest.
type CPU struct {
	Workers   int
	ChunkSize int
}

func NewCPU(workers int) *CPU {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPU{
		Workers:   workers,
		ChunkSize: defaultChunkSize,
	}
}

func (c *CPU) Name() string {
	return fmt.Sprintf("cpu/%v", c.Workers)
}

type chunk struct {
	start, end int
}

func (c *CPU) Dispatch(ctx context.Context, lanes int, step StepFunc) (err error) {
	defer func() { observe("cpu", lanes, err) }()

	if lanes <= 0 {
		return ctx.Err()
	}

	chunksize := c.ChunkSize
	if chunksize <= 0 {
		chunksize = defaultChunkSize
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// Small dispatches are not worth spreading thin
	if perworker := (lanes + workers - 1) / workers; perworker < chunksize {
		chunksize = max(perworker, 1)
	}

	queue := make(chan chunk, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: lane panicked: %v", ErrDispatch, r)
				}
			}()
			for work := range queue {
				for lane := work.start; lane < work.end; lane++ {
					step(lane)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(queue)
		for start := 0; start < lanes; start += chunksize {
			select {
			case queue <- chunk{start: start, end: min(start+chunksize, lanes)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}
