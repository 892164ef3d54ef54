package sync

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmirror/shelfmirror/pkg/errcodes"
)

// TriggerFunc asks the background worker to run a sync for the given shelves
// (all configured shelves when empty). It reports false when a sync is
// already queued.
type TriggerFunc func(shelves []string) bool

type handler struct {
	syncService *Service
	trigger     TriggerFunc
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// A bare POST with no body means "sync everything".
	c.Set("disallow_empty_body", false)

	params := CreateSyncPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	shelves := []string{}
	if params.Shelf != nil {
		hasActive, err := h.syncService.HasActiveSyncRun(ctx, *params.Shelf)
		if err != nil {
			return errors.WithStack(err)
		}
		if hasActive {
			return errcodes.SyncInProgress(*params.Shelf)
		}
		shelves = append(shelves, *params.Shelf)
	}

	if !h.trigger(shelves) {
		shelf := "all"
		if params.Shelf != nil {
			shelf = *params.Shelf
		}
		return errcodes.SyncInProgress(shelf)
	}

	resp := struct {
		Status string `json:"status"`
	}{"queued"}

	return errors.WithStack(c.JSON(http.StatusAccepted, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errcodes.NotFound("Sync run")
	}

	run, err := h.syncService.RetrieveSyncRun(ctx, RetrieveSyncRunOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, run))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSyncRunsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	runs, total, err := h.syncService.ListSyncRunsWithTotal(ctx, ListSyncRunsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Shelf:    params.Shelf,
		Statuses: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		SyncRuns []*SyncRun `json:"sync_runs"`
		Total    int        `json:"total"`
	}{runs, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
