package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	"github.com/Manudeeprao/expense-tracker/internal/handlers"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/middleware"
	"github.com/Manudeeprao/expense-tracker/internal/recurrence"
	"github.com/Manudeeprao/expense-tracker/internal/services"
	"github.com/Manudeeprao/expense-tracker/internal/storage/gormstore"
	"github.com/Manudeeprao/expense-tracker/internal/testutil"
	"github.com/Manudeeprao/expense-tracker/internal/validator"
)

const flowOperatorKey = "flow-operator-key"

// testApp holds the full application stack wired over SQLite.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Clock  *clock.Fixed
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp builds the router the API binary serves, backed by an isolated
// in-memory database and a clock fixed at 2024-03-15 12:00 UTC.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clk := clock.NewFixed(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	ledger := gormstore.New(db)

	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	budgetService := services.NewBudgetService(ledger, clk)
	categoryBudgetService := services.NewCategoryBudgetService(ledger)
	expenseService := services.NewExpenseService(ledger, services.NewExpenseGate(ledger), categoryService, clk, true)
	reportService := services.NewReportService(ledger, clk)
	scheduler := recurrence.NewScheduler(ledger, clk, nil)

	authHandler := handlers.NewAuthHandler(userService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	categoryBudgetHandler := handlers.NewCategoryBudgetHandler(categoryBudgetService, categoryService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	recurrenceHandler := handlers.NewRecurrenceHandler(scheduler)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/budget", budgetHandler.SetBudget)
	protected.GET("/budget/status", budgetHandler.GetBudgetStatus)
	protected.GET("/budget/remaining", budgetHandler.GetRemainingBudget)
	protected.GET("/category-budgets", categoryBudgetHandler.ListCategoryBudgets)
	protected.POST("/category-budgets", categoryBudgetHandler.CreateCategoryBudget)
	protected.PUT("/category-budgets/:id", categoryBudgetHandler.UpdateCategoryBudget)
	protected.DELETE("/category-budgets/:id", categoryBudgetHandler.DeleteCategoryBudget)
	protected.POST("/categories", categoryHandler.CreateCategory)
	protected.GET("/categories", categoryHandler.GetUserCategories)
	protected.POST("/expenses", expenseHandler.CreateExpense)
	protected.GET("/expenses", expenseHandler.GetUserExpenses)
	protected.GET("/expenses/:id", expenseHandler.GetExpense)
	protected.PUT("/expenses/:id", expenseHandler.UpdateExpense)
	protected.DELETE("/expenses/:id", expenseHandler.DeleteExpense)
	protected.GET("/reports/monthly", reportHandler.GetMonthlyReport)
	v1.POST("/recurrences/run", middleware.OperatorAuthMiddleware(flowOperatorKey), recurrenceHandler.RunDueRecurrences)

	return &testApp{DB: db, Router: router, Clock: clk}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// operatorRequest calls an operator route with the configured key.
func (app *testApp) operatorRequest(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.Header.Set(middleware.OperatorKeyHeader, flowOperatorKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustStatus fails the test unless rec carries the wanted status, and
// returns the decoded body.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(result map[string]interface{}) interface{} {
	if e, ok := result["error"].(map[string]interface{}); ok {
		return e["code"]
	}
	return nil
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	result := mustStatus(t, app.request("POST", "/api/v1/auth/register", body, ""), http.StatusCreated)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	app := setupApp(t)
	_, userID := app.registerUser(t, "auth@test.com")

	result := mustStatus(t, app.request("POST", "/api/v1/auth/login",
		`{"email":"auth@test.com","password":"password123"}`, ""), http.StatusOK)
	token := result["token"].(string)

	result = mustStatus(t, app.request("GET", "/api/v1/profile", "", token), http.StatusOK)
	if id := result["user"].(map[string]interface{})["id"]; id != userID {
		t.Errorf("expected profile %s, got %v", userID, id)
	}

	rec := app.request("POST", "/api/v1/auth/login", `{"email":"auth@test.com","password":"wrongpass"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on wrong password, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/profile", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on bad token, got %d", rec.Code)
	}
}

func TestBudgetFlow_GateAndStatus(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "budget@test.com")

	// No budget yet: status is empty and every expense is rejected.
	result := mustStatus(t, app.request("GET", "/api/v1/budget/status", "", token), http.StatusOK)
	if result["configured"] != false || result["budget"] != nil {
		t.Fatalf("expected unconfigured status, got %v", result)
	}
	result = mustStatus(t, app.request("POST", "/api/v1/expenses", `{"name":"Early","amount":"1"}`, token),
		http.StatusUnprocessableEntity)
	if errorCode(result) != "BUDGET_NOT_CONFIGURED" {
		t.Errorf("expected BUDGET_NOT_CONFIGURED, got %v", errorCode(result))
	}

	mustStatus(t, app.request("PUT", "/api/v1/budget", `{"total_budget":"1000"}`, token), http.StatusOK)

	result = mustStatus(t, app.request("POST", "/api/v1/categories", `{"name":"Dining"}`, token), http.StatusCreated)
	categoryID := result["category"].(map[string]interface{})["id"].(string)

	mustStatus(t, app.request("POST", "/api/v1/category-budgets",
		fmt.Sprintf(`{"category_id":%q,"amount":"100"}`, categoryID), token), http.StatusCreated)
	rec := app.request("POST", "/api/v1/category-budgets",
		fmt.Sprintf(`{"category_id":%q,"amount":"300"}`, categoryID), token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second limit for the category, got %d", rec.Code)
	}

	// Category limit 100: 80 fits, a further 30 does not.
	mustStatus(t, app.request("POST", "/api/v1/expenses",
		fmt.Sprintf(`{"name":"Dinner","amount":"80","category_id":%q}`, categoryID), token), http.StatusCreated)
	result = mustStatus(t, app.request("POST", "/api/v1/expenses",
		fmt.Sprintf(`{"name":"Lunch","amount":"30","category_id":%q}`, categoryID), token), http.StatusUnprocessableEntity)
	if errorCode(result) != "CATEGORY_BUDGET_EXCEEDED" {
		t.Errorf("expected CATEGORY_BUDGET_EXCEEDED, got %v", errorCode(result))
	}

	// Global budget 1000 with 950 spent: 60 is rejected, 50 lands exactly on the limit.
	mustStatus(t, app.request("POST", "/api/v1/expenses",
		`{"name":"Rent","amount":"870","date":"2024-03-01"}`, token), http.StatusCreated)
	result = mustStatus(t, app.request("POST", "/api/v1/expenses", `{"name":"TV","amount":"60"}`, token),
		http.StatusUnprocessableEntity)
	if errorCode(result) != "BUDGET_EXCEEDED" {
		t.Errorf("expected BUDGET_EXCEEDED, got %v", errorCode(result))
	}
	mustStatus(t, app.request("POST", "/api/v1/expenses", `{"name":"Books","amount":"50"}`, token), http.StatusCreated)

	result = mustStatus(t, app.request("GET", "/api/v1/budget/status", "", token), http.StatusOK)
	budget := result["budget"].(map[string]interface{})
	if budget["total_expenses"] != "1000" || budget["remaining_budget"] != "0" {
		t.Errorf("expected 1000 spent and 0 remaining, got %v / %v", budget["total_expenses"], budget["remaining_budget"])
	}
	if budget["near_limit"] != true {
		t.Errorf("expected near_limit at zero remaining")
	}

	result = mustStatus(t, app.request("GET", "/api/v1/budget/status?month=2&year=2024", "", token), http.StatusOK)
	if got := result["budget"].(map[string]interface{})["total_expenses"]; got != "0" {
		t.Errorf("expected nothing spent in February, got %v", got)
	}

	result = mustStatus(t, app.request("GET", "/api/v1/budget/remaining", "", token), http.StatusOK)
	if result["remaining_budget"] != "0" {
		t.Errorf("expected 0 remaining, got %v", result["remaining_budget"])
	}
}

func TestExpenseFlow_UpdateExcludesItself(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "update@test.com")

	mustStatus(t, app.request("PUT", "/api/v1/budget", `{"total_budget":"100"}`, token), http.StatusOK)
	result := mustStatus(t, app.request("POST", "/api/v1/expenses", `{"name":"Shoes","amount":"90"}`, token),
		http.StatusCreated)
	expenseID := result["expense"].(map[string]interface{})["id"].(string)

	// 95 replaces 90, so only 95 counts against the 100 budget.
	result = mustStatus(t, app.request("PUT", "/api/v1/expenses/"+expenseID,
		`{"name":"Shoes","amount":"95"}`, token), http.StatusOK)
	if got := result["expense"].(map[string]interface{})["amount"]; got != "95" {
		t.Errorf("expected amount 95, got %v", got)
	}

	rec := app.request("PUT", "/api/v1/expenses/"+expenseID, `{"name":"Shoes","amount":"101"}`, token)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 above the budget, got %d", rec.Code)
	}

	other, _ := app.registerUser(t, "other@test.com")
	rec = app.request("GET", "/api/v1/expenses/"+expenseID, "", other)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's expense, got %d", rec.Code)
	}

	mustStatus(t, app.request("DELETE", "/api/v1/expenses/"+expenseID, "", token), http.StatusOK)
	result = mustStatus(t, app.request("GET", "/api/v1/expenses", "", token), http.StatusOK)
	if n := result["total_items"]; n != float64(0) {
		t.Errorf("expected no expenses after delete, got %v", n)
	}
}

func TestRecurrenceFlow_DailyRun(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "recurring@test.com")

	mustStatus(t, app.request("PUT", "/api/v1/budget", `{"total_budget":"500"}`, token), http.StatusOK)
	mustStatus(t, app.request("POST", "/api/v1/expenses",
		`{"name":"Coffee","amount":"4.50","recurring":true,"recurrence":"DAILY"}`, token), http.StatusCreated)

	run := func() map[string]interface{} {
		t.Helper()
		result := mustStatus(t, app.operatorRequest("POST", "/api/v1/recurrences/run"), http.StatusOK)
		return result["result"].(map[string]interface{})
	}

	// A user token does not unlock the global trigger.
	if rec := app.request("POST", "/api/v1/recurrences/run", "", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a user token, got %d", rec.Code)
	}

	// The source expense is today's instance.
	if got := run()["generated"]; got != float64(0) {
		t.Fatalf("expected nothing generated on the creation day, got %v", got)
	}

	app.Clock.Advance(24 * time.Hour)
	if got := run()["generated"]; got != float64(1) {
		t.Fatalf("expected one instance the next day, got %v", got)
	}
	if got := run()["generated"]; got != float64(0) {
		t.Fatalf("expected a same-day rerun to generate nothing, got %v", got)
	}

	result := mustStatus(t, app.request("GET", "/api/v1/expenses?name=coffee", "", token), http.StatusOK)
	if n := result["total_items"]; n != float64(2) {
		t.Fatalf("expected 2 coffee expenses, got %v", n)
	}
	result = mustStatus(t, app.request("GET", "/api/v1/expenses?start_date=2024-03-16&end_date=2024-03-16", "", token), http.StatusOK)
	data := result["data"].([]interface{})
	if len(data) != 1 || data[0].(map[string]interface{})["template_id"] == nil {
		t.Errorf("expected the generated instance on 2024-03-16 with a template id, got %v", data)
	}
}

func TestReportFlow_MonthlyReport(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "report@test.com")

	mustStatus(t, app.request("PUT", "/api/v1/budget", `{"total_budget":"1000"}`, token), http.StatusOK)
	result := mustStatus(t, app.request("POST", "/api/v1/categories", `{"name":"Food"}`, token), http.StatusCreated)
	foodID := result["category"].(map[string]interface{})["id"].(string)

	for _, body := range []string{
		fmt.Sprintf(`{"name":"Lunch","amount":"30","category_id":%q,"date":"2024-03-02"}`, foodID),
		fmt.Sprintf(`{"name":"Dinner","amount":"45.50","category_id":%q,"date":"2024-03-09"}`, foodID),
		`{"name":"Bus","amount":"12","date":"2024-03-10"}`,
		`{"name":"Old","amount":"99","date":"2024-02-10"}`,
	} {
		mustStatus(t, app.request("POST", "/api/v1/expenses", body, token), http.StatusCreated)
	}

	result = mustStatus(t, app.request("GET", "/api/v1/reports/monthly", "", token), http.StatusOK)
	report := result["report"].(map[string]interface{})
	if report["total_expenses"] != "87.5" {
		t.Errorf("expected total 87.5, got %v", report["total_expenses"])
	}
	if report["top_category"] != "Food" {
		t.Errorf("expected Food on top, got %v", report["top_category"])
	}
	if report["remaining_budget"] != "912.5" {
		t.Errorf("expected remaining 912.5, got %v", report["remaining_budget"])
	}
	totals := report["category_totals"].([]interface{})
	if len(totals) != 2 || totals[1].(map[string]interface{})["category"] != "Uncategorized" {
		t.Errorf("expected Food then Uncategorized, got %v", totals)
	}

	rec := app.request("GET", "/api/v1/reports/monthly?month=0", "", token)
	if code := errorCode(mustStatus(t, rec, http.StatusBadRequest)); code != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %v", code)
	}
}
