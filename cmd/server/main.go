// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fusionhq/fusion-backend/internal/config"
	"github.com/fusionhq/fusion-backend/internal/database"
	"github.com/fusionhq/fusion-backend/internal/jobs"
	"github.com/fusionhq/fusion-backend/internal/router"
	"github.com/fusionhq/fusion-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Background job services, shared with the admin API's manual triggers
	notificationService := services.NewNotificationService(db, cfg)
	settlementService := services.NewSettlementService(cfg)
	auctionService := services.NewAuctionService(db, settlementService, cfg.Jobs.MaxSettlementAttempts)
	scannerService := services.NewScannerService(db, notificationService, cfg.Jobs.ScanBatchSize, cfg.Jobs.FetchTimeout)

	// Initialize router
	r := router.Initialize(db, cfg, auctionService, scannerService)

	// Register background jobs
	scheduler := jobs.NewScheduler()
	scheduler.Register(jobs.JobFunc{
		JobName: "auction_finalizer",
		Fn:      auctionService.FinalizeExpiredAuctions,
	}, cfg.Jobs.FinalizerInterval)
	scheduler.Register(jobs.JobFunc{
		JobName: "content_scanner",
		Fn:      scannerService.ScanPendingAssets,
	}, cfg.Jobs.ScannerInterval)
	scheduler.Register(jobs.JobFunc{
		JobName: "settlement_reconciler",
		Fn:      auctionService.ReconcilePendingSettlements,
	}, cfg.Jobs.ReconcileInterval)
	scheduler.Start(context.Background())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background jobs before closing the database
	scheduler.Stop()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
