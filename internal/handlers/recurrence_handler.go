package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Manudeeprao/expense-tracker/internal/recurrence"
)

// RecurrenceRunner triggers a pass over the recurrence templates.
type RecurrenceRunner interface {
	RunDueRecurrences(ctx context.Context) recurrence.RunResult
}

// RecurrenceHandler exposes a manual trigger for the recurrence scheduler.
// The route acts on every user and is mounted behind the operator key.
type RecurrenceHandler struct {
	runner RecurrenceRunner
}

// NewRecurrenceHandler creates a new RecurrenceHandler.
func NewRecurrenceHandler(runner RecurrenceRunner) *RecurrenceHandler {
	return &RecurrenceHandler{runner: runner}
}

// RunDueRecurrences generates every expense instance due today.
// @Summary     Run due recurrences
// @Description Emit today's instances for all due recurring expenses. Safe to repeat on the same day. Requires the operator key.
// @Tags        recurrences
// @Produce     json
// @Security    OperatorKey
// @Success     200 {object} recurrence.RunResult "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid or missing API key"
// @Failure     503 {object} ErrorResponse "Operator key not configured"
// @Router      /recurrences/run [post]
func (h *RecurrenceHandler) RunDueRecurrences(c *gin.Context) {
	// The batch runs to completion even if the caller goes away.
	ctx := context.WithoutCancel(c.Request.Context())

	result := h.runner.RunDueRecurrences(ctx)
	c.JSON(http.StatusOK, gin.H{"result": result})
}
