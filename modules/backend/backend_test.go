package backend

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRunsEveryLaneOnce(t *testing.T) {
	backends := []Backend{
		Serial{},
		NewCPU(1),
		NewCPU(4),
		&CPU{Workers: 3, ChunkSize: 7},
	}
	for _, be := range backends {
		for _, lanes := range []int{0, 1, 5, 1000, 4099} {
			counts := make([]atomic.Int32, lanes)
			err := be.Dispatch(context.Background(), lanes, func(lane int) {
				counts[lane].Add(1)
			})
			require.NoError(t, err, be.Name())
			for lane := range counts {
				assert.EqualValues(t, 1, counts[lane].Load(), "%v lane %v of %v", be.Name(), lane, lanes)
			}
		}
	}
}

func TestDispatchPanicBecomesError(t *testing.T) {
	for _, be := range []Backend{Serial{}, NewCPU(2)} {
		err := be.Dispatch(context.Background(), 100, func(lane int) {
			if lane == 42 {
				panic("boom")
			}
		})
		require.ErrorIs(t, err, ErrDispatch, be.Name())
	}
}

func TestDispatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Serial{}.Dispatch(ctx, 10, func(int) {})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	assert.Equal(t, "serial", New(1).Name())
	assert.Equal(t, "cpu/3", New(3).Name())
}
