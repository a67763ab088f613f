package frontend

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/lkarlslund/pathcost/modules/persistence"
)

func AddHistoryEndpoints(ws *WebService) {
	runs := ws.API.Group("runs")
	runs.Use(func(c *gin.Context) {
		if ws.history == nil {
			fail(c, http.StatusNotFound, errors.New("run history is disabled"))
		}
	})

	runs.GET("", func(c *gin.Context) {
		list, err := ws.history.List()
		if err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		// newest first
		slices.Reverse(list)
		if list == nil {
			list = []persistence.Run{}
		}
		c.JSON(http.StatusOK, list)
	})
	runs.GET(":id", func(c *gin.Context) {
		run, found := ws.history.Get(c.Param("id"))
		if !found {
			fail(c, http.StatusNotFound, persistence.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, run)
	})
	runs.DELETE(":id", func(c *gin.Context) {
		err := ws.history.Delete(c.Param("id"))
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			fail(c, http.StatusNotFound, err)
		case err != nil:
			fail(c, http.StatusInternalServerError, err)
		}
	})
}
