package shelves

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers shelf routes on a pre-configured group.
// The fixed routes are registered before the parameterized one so
// "currently-reading" and "recently-read" resolve to their dedicated handlers.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, fetcher ShelfFetcher) {
	shelfService := NewService(db, fetcher)

	h := &handler{
		shelfService: shelfService,
	}

	g.GET("/currently-reading", h.currentlyReading)
	g.GET("/recently-read", h.recentlyRead)
	g.GET("/:shelf", h.getShelf)
}
