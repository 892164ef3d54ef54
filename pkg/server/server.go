package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shelfmirror/shelfmirror/pkg/binder"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/errcodes"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/shelfmirror/shelfmirror/pkg/shelves"
	"github.com/shelfmirror/shelfmirror/pkg/sync"
	"github.com/shelfmirror/shelfmirror/pkg/worker"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, w *worker.Worker) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	registerRoutes(e, db, cfg, w)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func registerRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, w *worker.Worker) {
	// The shelf routes only get a live-source fallback when credentials are
	// configured; without them the store is the only source.
	var fetcher shelves.ShelfFetcher
	if cfg.RequireGoodreadsCredentials() == nil {
		fetcher = goodreads.NewClient(cfg)
	}

	shelvesGroup := e.Group("/shelves")
	shelves.RegisterRoutesWithGroup(shelvesGroup, db, fetcher)

	syncsGroup := e.Group("/syncs")
	sync.RegisterRoutesWithGroup(syncsGroup, db, w.Trigger)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
