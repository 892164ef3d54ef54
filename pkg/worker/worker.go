package worker

import (
	"context"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/shelfmirror/shelfmirror/pkg/sync"
	"github.com/uptrace/bun"
)

// Worker runs shelf syncs on a schedule and on demand. A single goroutine
// executes every sync, which is what serializes writers: two syncs can never
// touch the store at the same time.
type Worker struct {
	config *config.Config
	log    logger.Logger
	syncer *sync.Syncer

	// trigger carries on-demand sync requests (nil/empty means all configured
	// shelves). Its capacity of one means at most one sync can be queued
	// behind the running one; further triggers are rejected.
	trigger  chan []string
	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB) *Worker {
	return &Worker{
		config:   cfg,
		log:      logger.New(),
		syncer:   sync.NewSyncer(db, goodreads.NewClient(cfg), cfg),
		trigger:  make(chan []string, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Syncer exposes the worker's syncer so startup code can reuse its process ID.
func (w *Worker) Syncer() *sync.Syncer {
	return w.syncer
}

// Trigger queues an on-demand sync of the given shelves (all configured
// shelves when empty). It reports false when a sync is already queued.
func (w *Worker) Trigger(shelves []string) bool {
	select {
	case w.trigger <- shelves:
		return true
	default:
		return false
	}
}

func (w *Worker) Start() {
	go w.run()
}

func (w *Worker) run() {
	interval := time.Duration(w.config.SyncIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			close(w.done)
			return
		case <-ticker.C:
			w.runSync(nil)
		case shelves := <-w.trigger:
			w.runSync(shelves)
		}
	}
}

func (w *Worker) runSync(shelves []string) {
	if err := w.config.RequireGoodreadsCredentials(); err != nil {
		w.log.Err(err).Warn("skipping sync, source credentials not configured")
		return
	}

	ctx := w.log.WithContext(context.Background())

	if len(shelves) == 0 {
		if err := w.syncer.SyncAll(ctx); err != nil {
			w.log.Err(err).Error("scheduled sync finished with errors")
		}
		return
	}

	for _, shelf := range shelves {
		if _, err := w.syncer.SyncShelf(ctx, shelf); err != nil {
			w.log.Err(err).Error("triggered sync failed", logger.Data{"shelf": shelf})
		}
	}
}

func (w *Worker) Shutdown() {
	close(w.shutdown)
	<-w.done
}
