package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/database"
)

// HealthHandler reports liveness and database reachability for load
// balancers and monitoring.
type HealthHandler struct {
	DB *database.Handle
}

func NewHealthHandler(db *database.Handle) *HealthHandler { return &HealthHandler{DB: db} }

// Health answers 200 {"status":"ok"} when the database answers a ping and
// 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
}
