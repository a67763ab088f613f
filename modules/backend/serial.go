package backend

import (
	"context"
	"fmt"
)

// Serial runs every lane in order on the calling goroutine. Results are the
// same as with CPU, only slower, which makes it useful for debugging.
type Serial struct{}

func (Serial) Name() string {
	return "serial"
}

func (Serial) Dispatch(ctx context.Context, lanes int, step StepFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lane panicked: %v", ErrDispatch, r)
		}
		observe("serial", lanes, err)
	}()
	if err = ctx.Err(); err != nil {
		return err
	}
	for lane := 0; lane < lanes; lane++ {
		step(lane)
	}
	return nil
}
