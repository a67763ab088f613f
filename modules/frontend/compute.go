package frontend

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/lkarlslund/pathcost/modules/analyze"
	"github.com/lkarlslund/pathcost/modules/export"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/recordio"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/ui"
)

func fail(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "error": err.Error()})
}

// decodeBatch accepts the JSON edge list document, or the record format when
// the body is sent as plain text
func decodeBatch(r *http.Request) (*graph.Batch, error) {
	mediatype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediatype == "text/plain" {
		return recordio.Read(r.Body)
	}
	var bj export.BatchJSON
	dec := sonic.ConfigDefault.NewDecoder(r.Body)
	if err := dec.Decode(&bj); err != nil {
		return nil, err
	}
	return bj.ToBatch()
}

func AddComputeEndpoints(ws *WebService) {
	ws.API.POST("compute", func(c *gin.Context) {
		if ws.stopping.Load() {
			fail(c, http.StatusServiceUnavailable, errors.New("shutting down"))
			return
		}
		if ws.MaxBody > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ws.MaxBody)
		}
		b, err := decodeBatch(c.Request)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				fail(c, http.StatusRequestEntityTooLarge, err)
				return
			}
			fail(c, http.StatusBadRequest, err)
			return
		}

		run := persistence.NewRun("api")
		ws.inflight.Store(run.RunID, Computation{
			ID:      run.RunID,
			Started: run.Started,
			Graphs:  b.GraphCount,
		})

		if c.Query("wait") == "false" {
			ws.background.Add(1)
			go func() {
				defer ws.background.Done()
				ws.compute(context.Background(), run, b)
			}()
			c.JSON(http.StatusAccepted, gin.H{"status": "computing", "id": run.RunID})
			return
		}

		rj, err := ws.compute(c.Request.Context(), run, b)
		if err != nil {
			fail(c, errorStatus(err), err)
			return
		}
		writeResult(c, rj)
	})

	ws.API.GET("results/:id", func(c *gin.Context) {
		id := c.Param("id")
		if cached, found := ws.results.Get(id); found {
			switch result := cached.(type) {
			case export.ResultJSON:
				writeResult(c, result)
			case error:
				fail(c, errorStatus(result), result)
			}
			return
		}
		if computation, found := ws.inflight.Load(id); found {
			c.JSON(http.StatusAccepted, gin.H{"status": "computing", "computation": computation})
			return
		}
		fail(c, http.StatusNotFound, errors.New("no result with that id, it may have expired"))
	})

	ws.API.GET("computations", func(c *gin.Context) {
		computations := []Computation{}
		ws.inflight.Range(func(_ string, computation Computation) bool {
			computations = append(computations, computation)
			return true
		})
		c.JSON(http.StatusOK, computations)
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, graph.ErrAndCycle), errors.Is(err, relax.ErrNotConverged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return 499 // client went away
	}
	return http.StatusInternalServerError
}

func writeResult(c *gin.Context, rj export.ResultJSON) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteResult(c.Writer, rj); err != nil {
		ui.Warn().Msgf("Problem writing result %v: %v", rj.ID, err)
	}
}

// compute runs the engine for one request and records the outcome
func (ws *WebService) compute(ctx context.Context, run persistence.Run, b *graph.Batch) (export.ResultJSON, error) {
	ws.running.Add(1)
	defer func() {
		ws.running.Add(-1)
		ws.inflight.Delete(run.RunID)
	}()

	e := ws.Settings.Engine()
	e.Progress = "Computation " + run.RunID
	e.Inspect = ws.inspect
	result, err := analyze.Compute(ctx, e, b, ws.Settings.CheckCycles)

	record := analyze.Record("api", ws.Settings, b, result, err)
	record.RunID, record.Started = run.RunID, run.Started
	if ws.history != nil {
		if perr := ws.history.Put(record); perr != nil {
			ui.Warn().Msgf("Could not save run %v to history: %v", record.RunID, perr)
		}
	}
	if err != nil {
		ui.Warn().Msgf("Computation %v failed: %v", run.RunID, err)
		ws.results.Set(run.RunID, err, ws.ResultTTL)
		return export.ResultJSON{}, err
	}

	rj := export.Result(b, result)
	rj.ID = run.RunID
	rj.Backend = record.Backend
	ws.results.Set(run.RunID, rj, ws.ResultTTL)
	return rj, nil
}
