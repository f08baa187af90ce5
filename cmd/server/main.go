package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/schoolhub/circulation/internal/config"
	"github.com/schoolhub/circulation/internal/database"
	"github.com/schoolhub/circulation/internal/handlers"
	"github.com/schoolhub/circulation/internal/middleware"
	"github.com/schoolhub/circulation/internal/models"
	"github.com/schoolhub/circulation/internal/repository"
	"github.com/schoolhub/circulation/internal/services"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database connection
	db, err := database.New(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis connection
	redis, err := database.NewRedis(cfg)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	// Initialize repository and services
	repo := repository.NewFromPool(db.Pool)
	locks := services.NewBookLocks()

	catalogService := services.NewCatalogService(repo, logger)
	fineCalculator := services.NewFineCalculator(decimal.NewFromFloat(cfg.Circulation.FineRatePerDay))

	notificationDefaults := models.NotificationConfig{
		AutoSendEnabled: cfg.Notification.AutoSendEnabled,
		SendAfterDays:   int32(cfg.Notification.SendAfterDays),
		RepeatEveryDays: int32(cfg.Notification.RepeatEveryDays),
		MaxReminders:    int32(cfg.Notification.MaxReminders),
	}
	dispatchService := services.NewDispatchService(redis.Client, services.LogDispatcher{Logger: logger}, logger)
	schedulerService := services.NewSchedulerService(repo, dispatchService, notificationDefaults, logger)

	reservationService := services.NewReservationService(
		repo, catalogService, schedulerService, locks,
		cfg.Circulation.ClaimWindow(), cfg.Circulation.QueueTTL(), logger,
	)

	policy := services.CirculationPolicy{
		DefaultLoanDays:    cfg.Circulation.DefaultLoanDays,
		RenewalDays:        cfg.Circulation.RenewalDays,
		MaxRenewals:        int32(cfg.Circulation.MaxRenewals),
		MaxLoansPerStudent: int64(cfg.Circulation.MaxLoansPerStudent),
	}
	ledgerService := services.NewLedgerService(
		repo, catalogService, fineCalculator, reservationService,
		services.AllowAllDirectory{}, locks, policy, logger,
	)

	// Initialize Gin router
	r := gin.New()

	// Add global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redis)
	circulationHandler := handlers.NewCirculationHandler(ledgerService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	notificationHandler := handlers.NewNotificationHandler(schedulerService)

	api := r.Group("/api/v1")
	{
		api.GET("/ping", healthHandler.Ping)
		api.GET("/health", healthHandler.Health)

		loans := api.Group("/loans")
		{
			loans.POST("", circulationHandler.IssueBook)
			loans.GET("/overdue", circulationHandler.ListOverdueLoans)
			loans.GET("/:id", circulationHandler.GetLoan)
			loans.POST("/:id/return", circulationHandler.ReturnBook)
			loans.POST("/:id/renew", circulationHandler.RenewBook)
		}

		fines := api.Group("/fines")
		{
			fines.POST("/:id/pay", circulationHandler.PayFine)
			fines.POST("/:id/waive", circulationHandler.WaiveFine)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", reservationHandler.Reserve)
			reservations.DELETE("/:id", reservationHandler.Cancel)
		}

		api.GET("/books/:id/reservations", reservationHandler.ListQueue)

		notifications := api.Group("/notifications")
		{
			notifications.GET("/config", notificationHandler.GetConfig)
			notifications.PUT("/config", notificationHandler.UpdateConfig)
		}
	}

	// Root health check
	r.GET("/health", healthHandler.Health)

	// Background jobs: overdue reminder sweep, reservation expiry sweep
	// and the notice dispatch worker.
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	go schedulerService.Start(jobsCtx, cfg.Notification.SweepIntervalDuration())
	go reservationService.StartExpirySweep(jobsCtx, cfg.Circulation.SweepIntervalDuration())
	go dispatchService.Start(jobsCtx, time.Minute, 50)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "port", port, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	stopJobs()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}
