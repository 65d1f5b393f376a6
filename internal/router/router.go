// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/config"
	"github.com/fusionhq/fusion-backend/internal/handlers"
	"github.com/fusionhq/fusion-backend/internal/middleware"
	"github.com/fusionhq/fusion-backend/internal/services"
	"github.com/fusionhq/fusion-backend/internal/utils"
)

// Initialize wires services, handlers, and routes. The auction and scanner
// services are shared with the job scheduler, so the caller owns them.
func Initialize(db *gorm.DB, cfg *config.Config, auctionService *services.AuctionService, scannerService *services.ScannerService) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	assetService := services.NewAssetService(db, storageService)
	bidService := services.NewBidService(db)
	paymentService := services.NewPaymentService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	assetHandler := handlers.NewAssetHandler(assetService, storageService)
	bidHandler := handlers.NewBidHandler(bidService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(assetService, auctionService, scannerService, paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS([]string{cfg.Frontend.BaseURL}))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Asset routes
		assets := v1.Group("/assets")
		{
			assets.GET("", middleware.OptionalAuth(), assetHandler.GetAssets)
			assets.GET("/:id", middleware.OptionalAuth(), assetHandler.GetAsset)
			assets.GET("/:id/bids", bidHandler.GetAssetBids)
			assets.GET("/:id/scans", assetHandler.GetAssetScans)

			// Authenticated routes
			protected := assets.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", assetHandler.CreateAsset)
				protected.PUT("/:id", assetHandler.UpdateAsset)
				protected.DELETE("/:id", assetHandler.DeleteAsset)
				protected.POST("/:id/bidding", assetHandler.EnableBidding)
				protected.POST("/:id/bids", middleware.BidRateLimit(), bidHandler.PlaceBid)
				protected.POST("/upload", middleware.UploadRateLimit(), assetHandler.UploadFiles)
			}
		}

		// Bid routes
		bids := v1.Group("/bids")
		bids.Use(middleware.AuthRequired())
		{
			bids.DELETE("/:id", bidHandler.CancelBid)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Payment routes
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
			payments.GET("/history", paymentHandler.GetPaymentHistory)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			adminAssets := admin.Group("/assets")
			{
				adminAssets.GET("/flagged", adminHandler.GetFlaggedAssets)
				adminAssets.PUT("/:id/review", adminHandler.ReviewFlaggedAsset)
			}

			admin.POST("/refunds", adminHandler.ProcessRefund)

			// Manual job triggers
			adminJobs := admin.Group("/jobs")
			{
				adminJobs.POST("/finalize-auctions", adminHandler.RunAuctionFinalizer)
				adminJobs.POST("/scan-content", adminHandler.RunContentScanner)
				adminJobs.POST("/reconcile-settlements", adminHandler.RunSettlementReconciler)
			}
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
