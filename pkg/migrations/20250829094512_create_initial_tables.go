package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				goodreads_id TEXT UNIQUE NOT NULL,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				isbn TEXT,
				image_url TEXT,
				description TEXT,
				pages INTEGER,
				publication_year INTEGER,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE reviews (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				shelf TEXT NOT NULL,
				rating INTEGER,
				review TEXT,
				date_added TIMESTAMPTZ,
				date_read TIMESTAMPTZ,
				date_started TIMESTAMPTZ,
				read_count INTEGER NOT NULL DEFAULT 1,
				owned INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (book_id, shelf)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_reviews_book_id ON reviews (book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_reviews_shelf ON reviews (shelf)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_reviews_date_read ON reviews (date_read)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE sync_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				shelf TEXT NOT NULL,
				status TEXT NOT NULL,
				process_id TEXT,
				books_synced INTEGER NOT NULL DEFAULT 0,
				books_skipped INTEGER NOT NULL DEFAULT 0,
				orphans_removed INTEGER NOT NULL DEFAULT 0,
				pages_fetched INTEGER NOT NULL DEFAULT 0,
				error TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_sync_runs_shelf ON sync_runs (shelf)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, stmt := range []string{
			`DROP TABLE IF EXISTS sync_runs`,
			`DROP TABLE IF EXISTS reviews`,
			`DROP TABLE IF EXISTS books`,
		} {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
