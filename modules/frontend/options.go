package frontend

import (
	"github.com/gin-contrib/pprof"
	"github.com/lkarlslund/pathcost/modules/persistence"
)

// WithProfiling is a webservice modifier that enables pprof profiling endpoints on the web service.
func WithProfiling() optionsetter {
	return func(ws *WebService) error {
		pprof.Register(ws.engine)
		return nil
	}
}

// WithHistory records every computation in the given store and serves it
// under /api/runs
func WithHistory(store persistence.Store[persistence.Run]) optionsetter {
	return func(ws *WebService) error {
		ws.history = &store
		return nil
	}
}

func WithMaxBody(limit int64) optionsetter {
	return func(ws *WebService) error {
		ws.MaxBody = limit
		return nil
	}
}
