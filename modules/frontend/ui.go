package frontend

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/lkarlslund/pathcost/modules/version"
)

type progressReport struct {
	Status   string         `json:"status"`
	Progress []ui.BarStatus `json:"progressbars"`
}

func (ws *WebService) progress() progressReport {
	bars := ui.ProgressBars()
	slices.SortStableFunc(bars, func(i, j ui.BarStatus) int {
		return strings.Compare(i.ID, j.ID) // v7 ids sort by start time
	})
	return progressReport{
		Status:   ws.Status().String(),
		Progress: bars,
	}
}

// sameProgress ignores elapsed time, which changes on every call
func sameProgress(a, b progressReport) bool {
	if a.Status != b.Status || len(a.Progress) != len(b.Progress) {
		return false
	}
	for i := range a.Progress {
		x, y := a.Progress[i], b.Progress[i]
		if x.ID != y.ID || x.Current != y.Current || x.Total != y.Total {
			return false
		}
	}
	return true
}

func AddStatusEndpoints(ws *WebService) {
	ws.API.GET("status", func(c *gin.Context) {
		var inflight int
		ws.inflight.Range(func(string, Computation) bool {
			inflight++
			return true
		})
		c.JSON(http.StatusOK, gin.H{
			"status":        ws.Status().String(),
			"version":       version.ProgramVersionShort(),
			"backend":       ws.Settings.Backend().Name(),
			"workers":       ws.Settings.Workers,
			"phasesperpoll": ws.Settings.PhasesPerPoll,
			"maxiterations": ws.Settings.MaxIterations,
			"checkcycles":   ws.Settings.CheckCycles,
			"history":       ws.history != nil,
			"inflight":      inflight,
		})
	})

	// Polled progress status
	ws.API.GET("progress", func(c *gin.Context) {
		c.JSON(http.StatusOK, ws.progress())
	})

	// WebSocket progress status
	ws.API.GET("ws-progress", func(c *gin.Context) {
		var upgrader = websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var last progressReport
		var skipcounter int
		for {
			select {
			case <-ws.quit:
				return
			case <-c.Request.Context().Done():
				return
			default:
			}

			current := ws.progress()
			if sameProgress(last, current) {
				time.Sleep(250 * time.Millisecond)
				skipcounter++
				if skipcounter < 120 {
					continue
				}
			}
			skipcounter = 0

			conn.SetWriteDeadline(time.Now().Add(time.Second * 15))
			if err = conn.WriteJSON(current); err != nil {
				ui.Debug().Msgf("Progress websocket closed: %v", err)
				return
			}
			last = current
			time.Sleep(250 * time.Millisecond)
		}
	})
}
