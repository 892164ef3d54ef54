package shelves

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	shelfService *Service
}

func (h *handler) currentlyReading(c echo.Context) error {
	ctx := c.Request().Context()

	resp := struct {
		Books []BookInfo `json:"books"`
	}{h.shelfService.GetCurrentlyReading(ctx)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) recentlyRead(c echo.Context) error {
	ctx := c.Request().Context()

	params := RecentlyReadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if params.Offset != nil {
		return errors.WithStack(c.JSON(http.StatusOK, h.shelfService.GetRecentlyReadPaginated(ctx, params.Limit, *params.Offset)))
	}

	resp := struct {
		Books []BookInfo `json:"books"`
	}{h.shelfService.GetRecentlyRead(ctx, params.Limit)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) getShelf(c echo.Context) error {
	ctx := c.Request().Context()
	shelf := c.Param("shelf")

	params := GetShelfQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ShelfQueryOptions{
		TitleFilter:  params.Title,
		AuthorFilter: params.Author,
	}
	if params.SortBy != nil {
		opts.SortBy = *params.SortBy
	}
	if params.SortOrder != nil {
		opts.SortOrder = *params.SortOrder
	}

	result := h.shelfService.GetShelf(ctx, shelf, params.Page, params.PageSize, opts)

	return errors.WithStack(c.JSON(http.StatusOK, result))
}
