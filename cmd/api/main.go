package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propshare/internal/config"
	"propshare/internal/database"
	"propshare/internal/events"
	"propshare/internal/handlers"
	"propshare/internal/logger"
	"propshare/internal/middleware"
	"propshare/internal/ratelimit"
	"propshare/internal/services"
	"propshare/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title           PropShare API
// @version         1.0
// @description     PropShare is a fractional property investment platform where users buy tokenized shares of listed properties.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rate limiter: Redis-backed when configured, in-process otherwise.
	var limiter ratelimit.Limiter
	if appConfig.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", appConfig.RedisAddr, err)
		}
		limiter = ratelimit.NewRedisStore(client)
		log.Infof("Rate limiting backed by Redis at %s", appConfig.RedisAddr)
	} else {
		store := ratelimit.NewWindowStore()
		store.StartJanitor(ctx, appConfig.RateLimitWindow)
		limiter = store
	}

	// Event broker
	hub := events.NewHub(log)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db, hub)
	propertyService := services.NewPropertyService(db, hub)
	investmentService := services.NewInvestmentService(db, hub, appConfig.PlatformFeeRate)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	wsHandler := handlers.NewWSHandler(hub)

	// Initialize Gin router
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Event transport; authenticates via the first frame, not the header.
	v1.GET("/ws", wsHandler.Serve)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.Use(middleware.RateLimit(limiter, appConfig.RateLimitRequests, appConfig.RateLimitWindow))

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Property routes
	properties := protected.Group("/properties")
	properties.GET("", propertyHandler.ListProperties)
	properties.GET("/:id", propertyHandler.GetProperty)

	// Investment routes
	investments := protected.Group("/investments")
	investments.POST("", investmentHandler.CreateInvestment)
	investments.GET("", investmentHandler.ListInvestments)
	investments.GET("/:id", investmentHandler.GetInvestment)

	// Admin routes
	admin := protected.Group("/")
	admin.Use(middleware.RequireAdmin())
	admin.PUT("/users/:id/kyc", authHandler.UpdateKYC)
	admin.POST("/properties", propertyHandler.CreateProperty)
	admin.PUT("/properties/:id", propertyHandler.UpdateProperty)
	admin.PUT("/properties/:id/status", propertyHandler.UpdatePropertyStatus)
	admin.PUT("/properties/:id/price", propertyHandler.UpdateTokenPrice)
	admin.PUT("/investments/batch", investmentHandler.BatchUpdateInvestments)

	server := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutdown signal received, draining connections...")
		hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Server shutdown error: %v", err)
		}
	}()

	log.Infof("Starting PropShare backend server on port %s", appConfig.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
