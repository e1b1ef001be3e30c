package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fintally/tally/pkg/batch"
	"github.com/fintally/tally/pkg/models"
)

// Handler exposes the engine-wide reconciliation settings
type Handler struct {
	manager *batch.Manager
}

// NewHandler creates a new settings handler
func NewHandler(manager *batch.Manager) *Handler {
	return &Handler{manager: manager}
}

// Register registers settings routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Update)
}

// Get returns the current settings
func (h *Handler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Settings())
}

// Update applies a partial settings update and returns the resulting
// settings. Jobs already submitted keep the snapshot they started with.
func (h *Handler) Update(c echo.Context) error {
	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated := h.manager.UpdateSettings(req)
	return c.JSON(http.StatusOK, updated)
}
