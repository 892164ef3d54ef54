package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmirror/shelfmirror/pkg/books"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/uptrace/bun"
)

// ShelfFetcher is the slice of the source client the engine needs. Tests swap
// in a fake; production wires in *goodreads.Client.
type ShelfFetcher interface {
	FetchShelfPage(ctx context.Context, shelf string, page, perPage int) (*goodreads.ShelfPage, error)
}

// Stats summarizes one shelf sync.
type Stats struct {
	BooksSynced    int
	BooksSkipped   int
	OrphansRemoved int
	PagesFetched   int
}

// Syncer reconciles the local store with the source's shelf listings, one
// shelf at a time. Each execution is recorded as a SyncRun.
type Syncer struct {
	bookService *books.Service
	syncService *Service
	fetcher     ShelfFetcher
	cfg         *config.Config
	log         logger.Logger
	processID   string
}

func NewSyncer(db *bun.DB, fetcher ShelfFetcher, cfg *config.Config) *Syncer {
	return &Syncer{
		bookService: books.NewService(db),
		syncService: NewService(db),
		fetcher:     fetcher,
		cfg:         cfg,
		log:         logger.New(),
		processID:   uuid.NewString(),
	}
}

// ProcessID identifies this process's runs in the sync_runs table.
func (s *Syncer) ProcessID() string {
	return s.processID
}

// SyncAll syncs every configured shelf in order. A failure on one shelf is
// recorded and logged but doesn't stop the remaining shelves; the last error
// is returned so callers can surface it.
func (s *Syncer) SyncAll(ctx context.Context) error {
	var lastErr error

	for _, shelf := range s.cfg.SyncShelves {
		stats, err := s.SyncShelf(ctx, shelf)
		if err != nil {
			lastErr = err
			s.log.Err(err).Error("shelf sync failed", logger.Data{"shelf": shelf})
			continue
		}
		s.log.Info("shelf sync completed", logger.Data{
			"shelf":           shelf,
			"books_synced":    stats.BooksSynced,
			"books_skipped":   stats.BooksSkipped,
			"orphans_removed": stats.OrphansRemoved,
			"pages_fetched":   stats.PagesFetched,
		})
	}

	return lastErr
}

// SyncShelf pulls the shelf's full listing page by page and reconciles the
// local store against it: books are upserted, each book is held on exactly
// one shelf, and membership rows for books that vanished from the listing are
// removed. A fetch failure aborts the run with partial progress kept and no
// orphan cleanup.
func (s *Syncer) SyncShelf(ctx context.Context, shelf string) (Stats, error) {
	run := &SyncRun{
		Shelf:     shelf,
		Status:    SyncRunStatusInProgress,
		ProcessID: &s.processID,
	}
	if err := s.syncService.CreateSyncRun(ctx, run); err != nil {
		return Stats{}, errors.WithStack(err)
	}

	stats, syncErr := s.syncShelf(ctx, shelf)

	run.BooksSynced = stats.BooksSynced
	run.BooksSkipped = stats.BooksSkipped
	run.OrphansRemoved = stats.OrphansRemoved
	run.PagesFetched = stats.PagesFetched
	columns := []string{"status", "books_synced", "books_skipped", "orphans_removed", "pages_fetched"}

	if syncErr != nil {
		run.Status = SyncRunStatusFailed
		msg := syncErr.Error()
		run.Error = &msg
		columns = append(columns, "error")
	} else {
		run.Status = SyncRunStatusCompleted
	}

	if err := s.syncService.UpdateSyncRun(ctx, run, UpdateSyncRunOptions{Columns: columns}); err != nil {
		s.log.Err(err).Error("failed to record sync run result", logger.Data{"shelf": shelf})
	}

	return stats, syncErr
}

func (s *Syncer) syncShelf(ctx context.Context, shelf string) (Stats, error) {
	stats := Stats{}
	// Goodreads IDs confirmed to still live on this shelf. Anything stored
	// under the shelf but missing from this set is an orphan.
	keep := []string{}

	for page := 1; page <= s.cfg.SyncMaxPages; page++ {
		shelfPage, err := s.fetcher.FetchShelfPage(ctx, shelf, page, s.cfg.SyncPageSize)
		if err != nil {
			// Abort without orphan cleanup: a failed fetch says nothing about
			// what should be removed.
			return stats, errors.Wrapf(err, "fetching page %d of shelf %s", page, shelf)
		}
		if len(shelfPage.Records) == 0 {
			break
		}
		stats.PagesFetched++

		for i := range shelfPage.Records {
			record := &shelfPage.Records[i]
			if !record.Valid() {
				stats.BooksSkipped++
				s.log.Warn("skipping record with missing required fields", logger.Data{
					"shelf":        shelf,
					"goodreads_id": record.GoodreadsID,
					"title":        record.Title,
				})
				continue
			}

			effectiveShelf, err := s.syncRecord(ctx, shelf, record)
			if err != nil {
				return stats, errors.WithStack(err)
			}
			stats.BooksSynced++
			if effectiveShelf == shelf {
				keep = append(keep, record.GoodreadsID)
			}
		}

		if !shelfPage.HasMore() {
			break
		}
	}

	if stats.BooksSynced == 0 {
		// An empty listing is indistinguishable from a source hiccup, so
		// never treat it as "delete everything".
		s.log.Warn("source returned no records, skipping orphan removal", logger.Data{"shelf": shelf})
		return stats, nil
	}

	if len(keep) > 0 {
		removed, err := s.bookService.DeleteOrphanReviews(ctx, shelf, keep)
		if err != nil {
			return stats, errors.WithStack(err)
		}
		stats.OrphansRemoved = int(removed)
	}

	return stats, nil
}

// syncRecord upserts the book and its membership row. The record's own shelf
// tag wins over the shelf the listing was fetched for, and every other shelf's
// membership row for the book is dropped so the book lives on exactly one
// shelf.
func (s *Syncer) syncRecord(ctx context.Context, requestedShelf string, record *goodreads.Record) (string, error) {
	book := &books.Book{
		GoodreadsID:     record.GoodreadsID,
		Title:           record.Title,
		Author:          record.Author,
		ISBN:            record.ISBN,
		ImageURL:        record.ImageURL,
		Description:     record.Description,
		Pages:           record.Pages,
		PublicationYear: record.PublicationYear,
	}
	if err := s.bookService.UpsertBook(ctx, book); err != nil {
		return "", errors.WithStack(err)
	}

	effectiveShelf := record.Shelf
	if effectiveShelf == "" {
		effectiveShelf = requestedShelf
	}

	if _, err := s.bookService.DeleteReviewsExceptShelf(ctx, book.ID, effectiveShelf); err != nil {
		return "", errors.WithStack(err)
	}

	review := &books.Review{
		BookID:      book.ID,
		Shelf:       effectiveShelf,
		Rating:      record.Rating,
		ReviewText:  record.Review,
		DateAdded:   record.DateAdded,
		DateRead:    record.DateRead,
		DateStarted: record.DateStarted,
		ReadCount:   record.ReadCount,
		Owned:       record.Owned,
	}
	if err := s.bookService.UpsertReview(ctx, review); err != nil {
		return "", errors.WithStack(err)
	}

	return effectiveShelf, nil
}
