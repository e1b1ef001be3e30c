package batchjob

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fintally/tally/pkg/batch"
	"github.com/fintally/tally/pkg/models"
)

// Handler exposes the asynchronous batch job API
type Handler struct {
	manager *batch.Manager
}

// NewHandler creates a new batch job handler
func NewHandler(manager *batch.Manager) *Handler {
	return &Handler{manager: manager}
}

// Register registers batch job routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Submit)
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.POST("/:id/matches/:matchID/confirm", h.ConfirmMatch)
	g.POST("/cleanup", h.Cleanup)
}

// SubmitResponse is the response body for a job submission
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// Submit queues a reconciliation job and returns its id immediately
func (h *Handler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SubmitJobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	jobID, err := h.manager.Submit(ctx, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusAccepted, SubmitResponse{JobID: jobID})
}

// Get returns a job's current state, including progress while it runs and
// the result summary once completed
func (h *Handler) Get(c echo.Context) error {
	job, err := h.manager.Job(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// List returns a user's jobs, newest first
func (h *Handler) List(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id query parameter is required")
	}
	return c.JSON(http.StatusOK, h.manager.UserJobs(userID))
}

// Stats returns aggregate statistics over a user's job history
func (h *Handler) Stats(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id query parameter is required")
	}
	return c.JSON(http.StatusOK, h.manager.Stats(userID))
}

// ConfirmMatchRequest is the request body for recording a match verdict
type ConfirmMatchRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

// ConfirmMatch records a human verdict against a match in a completed job
func (h *Handler) ConfirmMatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req ConfirmMatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.manager.ConfirmMatch(ctx, c.Param("id"), c.Param("matchID"), *req.Correct)
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	case errors.Is(err, models.ErrMatchNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "match not found")
	case err != nil:
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// CleanupRequest is the request body for a manual eviction pass
type CleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours" validate:"omitempty,min=1"`
}

// CleanupResponse reports how many jobs an eviction pass removed
type CleanupResponse struct {
	Evicted int `json:"evicted"`
}

// Cleanup evicts old non-processing jobs on demand. Without a body it uses
// a 24 hour cutoff, same as the periodic sweep default.
func (h *Handler) Cleanup(c echo.Context) error {
	var req CleanupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	maxAge := 24 * time.Hour
	if req.MaxAgeHours > 0 {
		maxAge = time.Duration(req.MaxAgeHours) * time.Hour
	}

	evicted := h.manager.CleanupOldJobs(maxAge)
	return c.JSON(http.StatusOK, CleanupResponse{Evicted: evicted})
}
