package main

import (
	"log"

	"github.com/fleetlens/camera-signaling/config"
	"github.com/fleetlens/camera-signaling/internal/handlers"
	"github.com/fleetlens/camera-signaling/internal/middleware"
	"github.com/fleetlens/camera-signaling/internal/redis"
	"github.com/fleetlens/camera-signaling/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to Redis (presence mirror for dashboard processes)
	if err := redis.Connect(cfg.Redis); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	log.Println("Redis connection established")

	// Presence registry and signaling gateway
	reg := registry.New()
	gateway := handlers.NewGateway(reg, cfg.SessionTimeout)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// REST API
	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))

		// Presence snapshot (requires JWT)
		apiGroup.GET("/status", middleware.JWTAuth(cfg.JWTSecret), handlers.Status(gateway))
	}

	// WebSocket signaling endpoint
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", handlers.HandleSignaling(gateway))
	}

	// Start server
	log.Printf("Starting camera signaling server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
