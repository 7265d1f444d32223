package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/config"
	"github.com/transitwatch/journey-alert-backend/internal/database"
	"github.com/transitwatch/journey-alert-backend/internal/feed"
	"github.com/transitwatch/journey-alert-backend/internal/handlers"
	"github.com/transitwatch/journey-alert-backend/internal/services"
	"github.com/transitwatch/journey-alert-backend/pkg/notify"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TransitWatch Journey Alert Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	lineRepo := database.NewLineRepository(db)
	stationRepo := database.NewStationRepository(db)
	graphRepo := database.NewGraphRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	indexRepo := database.NewIndexRepository(db)

	// Initialize upstream feed client
	feedClient := feed.NewClient(cfg.Feed, logger)

	// Initialize services
	logger.Info("Initializing services...")
	graphBuilder := services.NewGraphBuilder(feedClient, stationRepo, graphRepo, cfg.Feed.TransportModes, logger)
	routeValidator := services.NewRouteValidator(stationRepo, lineRepo, cfg.Routes.MinLegs, cfg.Routes.MaxLegs, logger)
	subscriptionIndex := services.NewSubscriptionIndex(subscriptionRepo, indexRepo, lineRepo, logger)
	dedupStore := services.NewDedupStore()
	dispatcher := notify.NewLogDispatcher(logger)
	matcher := services.NewMatchingEngine(subscriptionRepo, feedClient, dedupStore, dispatcher, cfg.Matching.Workers, logger)

	// Initialize and start cron service
	cronService := services.NewCronService(graphBuilder, matcher, subscriptionIndex, dedupStore, cfg.Matching.PollInterval, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Services initialized")

	// Initialize handlers
	routeHandler := handlers.NewRouteHandler(routeValidator, logger)
	networkHandler := handlers.NewNetworkHandler(lineRepo, stationRepo, logger)
	adminHandler := handlers.NewAdminHandler(cronService, graphBuilder, subscriptionIndex, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Health and readiness endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/routes/validate", routeHandler.ValidateRoute)
		v1.GET("/network/status", networkHandler.NetworkStatus)
	}

	// Admin job surface
	admin := router.Group("/admin/jobs")
	{
		admin.POST("/rebuild", adminHandler.RebuildGraph)
		admin.POST("/match", adminHandler.RunMatching)
		admin.POST("/reindex", adminHandler.RebuildIndex)
		admin.GET("/status", adminHandler.JobStatus)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
