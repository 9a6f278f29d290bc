package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/services"
)

// CategoryBudgetHandler handles per-category limits.
type CategoryBudgetHandler struct {
	categoryBudgetService services.CategoryBudgetServicer
	categoryService       services.CategoryServicer
	auditService          services.AuditServicer
}

// NewCategoryBudgetHandler creates a new CategoryBudgetHandler.
func NewCategoryBudgetHandler(
	categoryBudgetService services.CategoryBudgetServicer,
	categoryService services.CategoryServicer,
	auditService services.AuditServicer,
) *CategoryBudgetHandler {
	return &CategoryBudgetHandler{
		categoryBudgetService: categoryBudgetService,
		categoryService:       categoryService,
		auditService:          auditService,
	}
}

// CategoryBudgetRequest represents the payload for creating or updating a limit.
type CategoryBudgetRequest struct {
	CategoryID string          `json:"category_id" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"200.00"`
}

// ListCategoryBudgets returns every category limit of the user.
// @Summary     List category budgets
// @Tags        category-budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]models.CategoryBudget "category_budgets"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /category-budgets [get]
func (h *CategoryBudgetHandler) ListCategoryBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.categoryBudgetService.ListCategoryBudgets(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category_budgets": budgets})
}

// CreateCategoryBudget adds a limit for a category.
// @Summary     Create category budget
// @Tags        category-budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategoryBudgetRequest true "Category limit"
// @Success     201 {object} models.CategoryBudget
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category already has a budget"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /category-budgets [post]
func (h *CategoryBudgetHandler) CreateCategoryBudget(c *gin.Context) {
	h.upsert(c, "")
}

// UpdateCategoryBudget changes a limit's amount or category.
// @Summary     Update category budget
// @Tags        category-budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Category budget ID"
// @Param       request body CategoryBudgetRequest true "Category limit"
// @Success     200 {object} models.CategoryBudget
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     409 {object} ErrorResponse "Category already has a budget"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /category-budgets/{id} [put]
func (h *CategoryBudgetHandler) UpdateCategoryBudget(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.upsert(c, id)
}

func (h *CategoryBudgetHandler) upsert(c *gin.Context, existingID string) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CategoryBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.categoryService.GetCategoryByID(ctx, userID, req.CategoryID); err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.categoryBudgetService.UpsertCategoryBudget(ctx, userID, req.CategoryID, req.Amount, existingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, action := http.StatusCreated, services.AuditCreateCategoryBudget
	if existingID != "" {
		status, action = http.StatusOK, services.AuditUpdateCategoryBudget
	}
	h.auditService.Log(ctx, userID, action, services.ResourceCategoryBudget, budget.ID, c.ClientIP(),
		map[string]interface{}{"category_id": req.CategoryID, "amount": req.Amount.String()})

	c.JSON(status, gin.H{"category_budget": budget})
}

// DeleteCategoryBudget removes a limit.
// @Summary     Delete category budget
// @Tags        category-budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category budget ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /category-budgets/{id} [delete]
func (h *CategoryBudgetHandler) DeleteCategoryBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.categoryBudgetService.GetCategoryBudget(ctx, userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryBudgetService.DeleteCategoryBudget(ctx, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(ctx, userID, services.AuditDeleteCategoryBudget, services.ResourceCategoryBudget, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Category budget deleted successfully"})
}
