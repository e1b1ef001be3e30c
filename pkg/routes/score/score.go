package score

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fintally/tally/pkg/batch"
	"github.com/fintally/tally/pkg/models"
	"github.com/fintally/tally/pkg/scoring"
)

// Handler exposes single-pair scoring for debugging rule configurations
type Handler struct {
	aggregator *scoring.Aggregator
	manager    *batch.Manager
}

// NewHandler creates a new score handler
func NewHandler(aggregator *scoring.Aggregator, manager *batch.Manager) *Handler {
	return &Handler{
		aggregator: aggregator,
		manager:    manager,
	}
}

// Register registers score routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Score)
}

// ScoreRequest is the request body for scoring one candidate pair
type ScoreRequest struct {
	Receipt     models.ReceiptRecord           `json:"receipt" validate:"required"`
	Transaction models.BankTransactionRecord   `json:"transaction" validate:"required"`
	Settings    *models.ReconciliationSettings `json:"settings,omitempty"`
}

// Score scores one receipt/transaction pair and returns the per-rule
// breakdown. Read only; the learning store is consulted, never updated.
func (h *Handler) Score(c echo.Context) error {
	ctx := c.Request().Context()

	var req ScoreRequest
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

	breakdown := h.aggregator.Score(ctx, req.Receipt, req.Transaction, settings)
	return c.JSON(http.StatusOK, breakdown)
}
