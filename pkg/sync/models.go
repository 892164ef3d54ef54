package sync

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SyncRunStatusInProgress = "in_progress"
	SyncRunStatusCompleted  = "completed"
	SyncRunStatusFailed     = "failed"
)

// SyncRun is one recorded execution of a shelf sync, successful or not.
type SyncRun struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID             int64     `bun:",pk,autoincrement" json:"id"`
	Shelf          string    `bun:",nullzero" json:"shelf"`
	Status         string    `bun:",nullzero" json:"status"`
	ProcessID      *string   `json:"process_id,omitempty"`
	BooksSynced    int       `json:"books_synced"`
	BooksSkipped   int       `json:"books_skipped"`
	OrphansRemoved int       `json:"orphans_removed"`
	PagesFetched   int       `json:"pages_fetched"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
