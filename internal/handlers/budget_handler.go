package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/services"
)

// BudgetHandler handles the user's global budget.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// SetBudgetRequest represents the request payload for setting the budget.
type SetBudgetRequest struct {
	TotalBudget decimal.Decimal `json:"total_budget" binding:"required,gt=0" swaggertype:"string" example:"1500.00"`
}

// SetBudget creates or replaces the authenticated user's budget.
// @Summary     Set budget
// @Description Create or overwrite the global spending limit
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetBudgetRequest true "Budget total"
// @Success     200 {object} services.BudgetStatus "Budget status for the current month"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget [put]
func (h *BudgetHandler) SetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	status, err := h.budgetService.SetBudget(c.Request.Context(), userID, req.TotalBudget)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditSetBudget, services.ResourceBudget, status.ID, c.ClientIP(),
		map[string]interface{}{"total_budget": req.TotalBudget.String()})

	c.JSON(http.StatusOK, gin.H{"budget": status})
}

// GetBudgetStatus reports spend against the budget for a month.
// @Summary     Get budget status
// @Description Budget, month-to-date spend, remaining amount and near-limit flag
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Param       month query int false "Month 1-12 (default current)"
// @Param       year  query int false "Year (default current)"
// @Success     200 {object} map[string]interface{} "budget is null and configured false when no budget is set"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget/status [get]
func (h *BudgetHandler) GetBudgetStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	month, err := queryInt(c, "month")
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := queryInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.budgetService.GetBudgetStatus(c.Request.Context(), userID, month, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": status, "configured": status != nil})
}

// GetRemainingBudget returns what is left of this month's budget.
// @Summary     Get remaining budget
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "remaining_budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} ErrorResponse "Budget not configured"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget/remaining [get]
func (h *BudgetHandler) GetRemainingBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	remaining, err := h.budgetService.GetRemainingBudget(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_budget": remaining})
}

func queryInt(c *gin.Context, key string) (*int, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, key+" must be an integer")
	}
	return &n, nil
}
