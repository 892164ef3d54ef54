package sync

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmirror/shelfmirror/pkg/errcodes"
	"github.com/uptrace/bun"
)

type RetrieveSyncRunOptions struct {
	ID *int64
}

type ListSyncRunsOptions struct {
	Limit    *int
	Offset   *int
	Shelf    *string
	Statuses []string

	includeTotal bool
}

type UpdateSyncRunOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateSyncRun(ctx context.Context, run *SyncRun) error {
	now := time.Now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = run.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(run).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveSyncRun(ctx context.Context, opts RetrieveSyncRunOptions) (*SyncRun, error) {
	run := &SyncRun{}

	q := svc.db.
		NewSelect().
		Model(run)

	if opts.ID != nil {
		q = q.Where("sr.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Sync run")
		}
		return nil, errors.WithStack(err)
	}

	return run, nil
}

func (svc *Service) ListSyncRuns(ctx context.Context, opts ListSyncRunsOptions) ([]*SyncRun, error) {
	runs, _, err := svc.listSyncRunsWithTotal(ctx, opts)
	return runs, errors.WithStack(err)
}

func (svc *Service) ListSyncRunsWithTotal(ctx context.Context, opts ListSyncRunsOptions) ([]*SyncRun, int, error) {
	opts.includeTotal = true
	return svc.listSyncRunsWithTotal(ctx, opts)
}

func (svc *Service) listSyncRunsWithTotal(ctx context.Context, opts ListSyncRunsOptions) ([]*SyncRun, int, error) {
	runs := []*SyncRun{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&runs).
		Order("sr.created_at DESC").
		Order("sr.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Shelf != nil {
		q = q.Where("sr.shelf = ?", *opts.Shelf)
	}
	if opts.Statuses != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, s := range opts.Statuses {
				sq = sq.WhereOr("sr.status = ?", s)
			}
			return sq
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return runs, total, nil
}

// HasActiveSyncRun checks whether a sync is currently recorded as in progress
// for the shelf. It backs the conflict check on manually triggered syncs.
func (svc *Service) HasActiveSyncRun(ctx context.Context, shelf string) (bool, error) {
	count, err := svc.db.
		NewSelect().
		Model((*SyncRun)(nil)).
		Where("sr.shelf = ?", shelf).
		Where("sr.status = ?", SyncRunStatusInProgress).
		Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

func (svc *Service) UpdateSyncRun(ctx context.Context, run *SyncRun, opts UpdateSyncRunOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	run.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(run).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Sync run")
		}
		return errors.WithStack(err)
	}

	return nil
}

// FailStaleSyncRuns marks in-progress runs from other processes as failed.
// It runs at startup so a crashed process never leaves a shelf permanently
// locked out of manual syncs.
func (svc *Service) FailStaleSyncRuns(ctx context.Context, processID string) (int64, error) {
	msg := "process exited before the sync finished"

	res, err := svc.db.
		NewUpdate().
		Model((*SyncRun)(nil)).
		Set("status = ?", SyncRunStatusFailed).
		Set("error = ?", msg).
		Set("updated_at = ?", time.Now()).
		Where("status = ?", SyncRunStatusInProgress).
		WhereGroup(" AND ", func(sq *bun.UpdateQuery) *bun.UpdateQuery {
			return sq.
				Where("process_id IS NULL").
				WhereOr("process_id != ?", processID)
		}).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	updated, err := res.RowsAffected()
	return updated, errors.WithStack(err)
}
