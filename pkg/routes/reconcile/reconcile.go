package reconcile

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fintally/tally/pkg/batch"
	"github.com/fintally/tally/pkg/matching"
	"github.com/fintally/tally/pkg/models"
)

// Handler exposes synchronous reconciliation for small record sets. Large
// statements should go through the batch endpoints instead.
type Handler struct {
	engine  *matching.Engine
	manager *batch.Manager
}

// NewHandler creates a new reconcile handler
func NewHandler(engine *matching.Engine, manager *batch.Manager) *Handler {
	return &Handler{
		engine:  engine,
		manager: manager,
	}
}

// Register registers reconcile routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Reconcile)
}

// ReconcileRequest is the request body for a synchronous reconciliation run
type ReconcileRequest struct {
	Receipts     []models.ReceiptRecord         `json:"receipts" validate:"required,min=1"`
	Transactions []models.BankTransactionRecord `json:"transactions"`
	Settings     *models.ReconciliationSettings `json:"settings,omitempty"`
}

// Reconcile runs one matching pass inline and returns the full summary
func (h *Handler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	settings := h.manager.Settings()
	if req.Settings != nil {
		settings = req.Settings.Clone()
	}

	summary := h.engine.Reconcile(ctx, req.Receipts, req.Transactions, settings)
	return c.JSON(http.StatusOK, summary)
}
