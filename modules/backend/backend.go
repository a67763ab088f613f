// Package backend executes data parallel step functions over a number of
// independent lanes. A dispatch is a barrier: it returns only once every lane
// has run, so writes made by one dispatch are visible to the next.
package backend

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StepFunc is run once per lane in a dispatch
type StepFunc func(lane int)

type Backend interface {
	Name() string
	// Dispatch runs step for every lane in [0, lanes) and blocks until all
	// lanes have finished. There is no ordering guarantee between lanes.
	Dispatch(ctx context.Context, lanes int, step StepFunc) error
}

var ErrDispatch = errors.New("backend dispatch failed")

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathcost_backend_dispatch_total",
		Help: "Dispatches issued to the compute backend",
	}, []string{"backend", "result"})

	lanesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathcost_backend_lanes_total",
		Help: "Lanes executed by the compute backend",
	}, []string{"backend"})
)

func observe(name string, lanes int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	dispatchTotal.WithLabelValues(name, result).Inc()
	if err == nil {
		lanesTotal.WithLabelValues(name).Add(float64(lanes))
	}
}

// New returns a CPU backend, or a serial one when workers is 1
func New(workers int) Backend {
	if workers == 1 {
		return Serial{}
	}
	return NewCPU(workers)
}
