package sync

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers sync routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, trigger TriggerFunc) {
	syncService := NewService(db)

	h := &handler{
		syncService: syncService,
		trigger:     trigger,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create)
}
