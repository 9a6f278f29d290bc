package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	"github.com/Manudeeprao/expense-tracker/internal/config"
	"github.com/Manudeeprao/expense-tracker/internal/database"
	_ "github.com/Manudeeprao/expense-tracker/internal/docs" // Import swagger docs
	"github.com/Manudeeprao/expense-tracker/internal/events"
	"github.com/Manudeeprao/expense-tracker/internal/handlers"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/metrics"
	"github.com/Manudeeprao/expense-tracker/internal/middleware"
	"github.com/Manudeeprao/expense-tracker/internal/recurrence"
	"github.com/Manudeeprao/expense-tracker/internal/services"
	"github.com/Manudeeprao/expense-tracker/internal/storage/gormstore"
	"github.com/Manudeeprao/expense-tracker/internal/validator"
)

// @title           Expense Tracker API
// @version         1.0
// @description     Expense tracking with a per-user budget, per-category limits and recurring expenses.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey OperatorKey
// @in header
// @name X-API-Key
// @description Shared operator key for endpoints that act on every user.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher := newPublisher(appConfig)
	defer publisher.Close()

	// Initialize services
	db := dbManager.DB()
	ledger := gormstore.New(db)
	clk := clock.System{Location: appConfig.RecurrenceLocation}

	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	budgetService := services.NewBudgetService(ledger, clk)
	categoryBudgetService := services.NewCategoryBudgetService(ledger)
	gate := services.NewExpenseGate(ledger)
	expenseService := services.NewExpenseService(ledger, gate, categoryService, clk, appConfig.StrictBudgetGate)
	reportService := services.NewReportService(ledger, clk)
	scheduler := recurrence.NewScheduler(ledger, clk, publisher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	categoryBudgetHandler := handlers.NewCategoryBudgetHandler(categoryBudgetService, categoryService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	recurrenceHandler := handlers.NewRecurrenceHandler(scheduler)

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Recovery())
	router.Use(metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.OperatorKeyHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	budget := protected.Group("/budget")
	budget.PUT("", budgetHandler.SetBudget)
	budget.GET("/status", budgetHandler.GetBudgetStatus)
	budget.GET("/remaining", budgetHandler.GetRemainingBudget)

	categoryBudgets := protected.Group("/category-budgets")
	categoryBudgets.GET("", categoryBudgetHandler.ListCategoryBudgets)
	categoryBudgets.POST("", categoryBudgetHandler.CreateCategoryBudget)
	categoryBudgets.PUT("/:id", categoryBudgetHandler.UpdateCategoryBudget)
	categoryBudgets.DELETE("/:id", categoryBudgetHandler.DeleteCategoryBudget)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetUserExpenses)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	protected.GET("/reports/monthly", reportHandler.GetMonthlyReport)

	// Operator routes act on every user
	if appConfig.RecurrenceTriggerKey == "" {
		log.Info("Manual recurrence trigger disabled (RECURRENCE_TRIGGER_KEY not set)")
	}
	v1.POST("/recurrences/run", middleware.OperatorAuthMiddleware(appConfig.RecurrenceTriggerKey), recurrenceHandler.RunDueRecurrences)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting expense tracker on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if appConfig.RecurrenceEnabled {
		runner, err := recurrence.NewRunner(scheduler, appConfig.RecurrenceCron, appConfig.RecurrenceLocation)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return runner.Run(gctx)
		})
	} else {
		log.Info("Recurrence job disabled")
	}

	return g.Wait()
}

// newPublisher connects to RabbitMQ when AMQP_URL is set. A broker that is
// unreachable at startup degrades to no publishing.
func newPublisher(cfg *config.Config) events.Publisher {
	log := logger.Get()
	if cfg.AMQPURL == "" {
		log.Info("AMQP disabled; generated expenses will not be announced")
		return events.Nop{}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Warnw("AMQP unavailable, continuing without events", "error", err)
		return events.Nop{}
	}
	log.Infow("AMQP publisher ready", "exchange", cfg.AMQPExchange)
	return p
}
