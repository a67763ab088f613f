package frontend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	gsync "github.com/SaveTheRbtz/generic-sync-map-go"
	"github.com/akyoto/cache"
	"github.com/gin-gonic/gin"
	"github.com/lkarlslund/pathcost/modules/analyze"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Computation is a request being worked on
type Computation struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Graphs  int       `json:"graphs"`
}

type optionsetter func(ws *WebService) error

type WebService struct {
	quit     chan bool
	quitOnce sync.Once
	engine   *gin.Engine
	Router   *gin.RouterGroup
	API      *gin.RouterGroup
	srv      http.Server
	protocol string

	Settings analyze.Settings
	// ResultTTL is how long finished results can be fetched by id
	ResultTTL time.Duration
	// MaxBody limits uploaded batches, 0 is unlimited
	MaxBody int64

	history  *persistence.Store[persistence.Run]
	results  *cache.Cache
	inflight gsync.MapOf[string, Computation]
	running  atomic.Int32
	stopping atomic.Bool
	// background computations, waited for on shutdown
	background sync.WaitGroup
	// inspect sees the converged state of every computation
	inspect     func(*relax.State)
	Initialized bool
}

var globaloptions []optionsetter
var optionsmutex sync.Mutex

func AddOption(os optionsetter) {
	optionsmutex.Lock()
	globaloptions = append(globaloptions, os)
	optionsmutex.Unlock()
}

func NewWebservice(settings analyze.Settings, options ...optionsetter) *WebService {
	gin.SetMode(gin.ReleaseMode) // Has to happen first
	ws := &WebService{
		quit:      make(chan bool),
		engine:    gin.New(),
		protocol:  "http",
		Settings:  settings,
		ResultTTL: 10 * time.Minute,
		results:   cache.New(time.Minute),
	}
	ws.engine.Use(func(c *gin.Context) {
		start := time.Now() // Start timer
		path := c.Request.URL.Path
		// Process request
		c.Next()

		logger := ui.Info()
		if c.Writer.Status() >= 400 {
			logger = ui.Warn()
		}
		if c.Writer.Status() >= 500 {
			logger = ui.Error()
		}
		logger.Msgf("%s %s (%v) %v, %v bytes", c.Request.Method, path, c.Writer.Status(), time.Since(start), c.Writer.Size())
	})
	ws.engine.Use(gin.Recovery()) // adds the default recovery middleware
	ws.Router = ws.engine.Group("")
	ws.API = ws.Router.Group("/api")
	// Error handling
	ws.API.Use(func(ctx *gin.Context) {
		ctx.Next()

		ctx.Header(`Cache-Control`, `no-cache, no-store, no-transform, must-revalidate, private, max-age=0`)
		ctx.Header(`Pragma`, `no-cache`)

		if ctx.Writer.Written() {
			return
		}
		if len(ctx.Errors) > 0 {
			status := ctx.Writer.Status()
			if status < 400 {
				status = http.StatusInternalServerError
			}
			ctx.JSON(status, gin.H{"status": "error", "error": ctx.Errors.Last().Err.Error()})
			return
		}
		if !ctx.IsAborted() {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	})
	ws.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	optionsmutex.Lock()
	options = append(append([]optionsetter{}, globaloptions...), options...)
	optionsmutex.Unlock()
	for _, os := range options {
		if err := os(ws); err != nil {
			ui.Error().Msgf("Error setting frontend option: %v", err)
		}
	}
	return ws
}

// Init adds the API endpoints
func (ws *WebService) Init() {
	if ws.Initialized {
		return
	}
	ws.Initialized = true

	AddComputeEndpoints(ws)
	AddHistoryEndpoints(ws)
	AddStatusEndpoints(ws)
}

// Handler serves the web service without listening, used by tests
func (ws *WebService) Handler() http.Handler {
	ws.Init()
	return ws.engine
}

func (ws *WebService) Status() WebServiceStatus {
	switch {
	case ws.stopping.Load():
		return Stopping
	case ws.running.Load() > 0:
		return Computing
	}
	return Idle
}

func (ws *WebService) QuitChan() <-chan bool {
	return ws.quit
}

func (ws *WebService) Quit() {
	ws.quitOnce.Do(func() {
		close(ws.quit)
	})
}

func (ws *WebService) Start(bind string) error {
	ws.Init()
	ws.srv.Addr = bind
	ws.srv.Handler = ws.engine

	conn, err := net.Listen("tcp", ws.srv.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := ws.srv.Serve(conn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ui.Fatal().Msgf("Problem launching webservice listener: %s", err)
		}
	}()
	ui.Info().Msgf("Pathcost web service listening at %v://%v/ ... (ctrl-c or similar to quit)", ws.protocol, conn.Addr())
	return nil
}

// Shutdown stops accepting requests and waits for running computations
func (ws *WebService) Shutdown(ctx context.Context) error {
	ws.stopping.Store(true)
	err := ws.srv.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		ws.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	ws.Quit()
	return err
}
