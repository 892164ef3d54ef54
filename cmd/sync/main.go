package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/database"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/shelfmirror/shelfmirror/pkg/migrations"
	"github.com/shelfmirror/shelfmirror/pkg/sync"
	"github.com/shelfmirror/shelfmirror/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	// A .env file is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "sync",
		Usage:   "mirror shelf listings from the source into the local store",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "shelf",
				Aliases: []string{"s"},
				Usage:   "shelf to sync (repeatable; defaults to all configured shelves)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("sync error")
	}
}

func run(c *cli.Context) error {
	ctx := c.Context
	log := logger.New()

	if c.Bool("verbose") {
		os.Setenv("LOG_LEVEL", "debug")
		log = logger.New()
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}

	// Missing credentials are the one hard failure: nothing useful can happen
	// without them, so bail before touching the network or the store.
	if err := cfg.RequireGoodreadsCredentials(); err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		return err
	}

	syncer := sync.NewSyncer(db, goodreads.NewClient(cfg), cfg)

	shelves := c.StringSlice("shelf")
	if len(shelves) == 0 {
		shelves = cfg.SyncShelves
	}

	// Per-shelf failures are recorded and logged but don't fail the command:
	// a partial sync still leaves the store better than before.
	for _, shelf := range shelves {
		stats, err := syncer.SyncShelf(ctx, shelf)
		if err != nil {
			log.Err(err).Error("shelf sync failed", logger.Data{"shelf": shelf})
			continue
		}
		log.Info("shelf sync completed", logger.Data{
			"shelf":           shelf,
			"books_synced":    stats.BooksSynced,
			"books_skipped":   stats.BooksSkipped,
			"orphans_removed": stats.OrphansRemoved,
			"pages_fetched":   stats.PagesFetched,
		})
	}

	return nil
}
