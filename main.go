package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rdpmon/config"
	"rdpmon/handler"
	"rdpmon/middleware"
	"rdpmon/repository"
	"rdpmon/services"
	"rdpmon/usecase"
	"rdpmon/utils"
)

func init() {
	// Load environment variables from .env file when present
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}
	utils.InitValidator()
}

func buildStore(cfg config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		client, err := repository.ConnectMongo(context.Background(), cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		log.Printf("Using MongoDB store (%s/%s)", cfg.MongoDatabase, cfg.MongoCollection)
		return repository.NewMongoStore(client, cfg.MongoDatabase, cfg.MongoCollection), nil
	case "file", "":
		log.Printf("Using file store at %s", cfg.DataPath)
		return repository.NewFileStore(cfg.DataPath), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func setupRouter(cfg config.Config, service *usecase.SessionService, notifier *services.Notifier) *gin.Engine {
	router := gin.Default()
	protocol := cfg.DashboardPublicProtocol

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.BodyLimitMiddleware())
	router.Use(middleware.MetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			handler.HealthHandler(c, service)
		})

		sessions := api.Group("/sessions")
		{
			sessions.GET("", func(c *gin.Context) {
				handler.ListSessionsHandler(c, service)
			})
			sessions.POST("", func(c *gin.Context) {
				handler.CreateSessionHandler(c, service, notifier, protocol)
			})
			sessions.GET("/auto-heartbeat", func(c *gin.Context) {
				handler.AutoHeartbeatHandler(c, service, notifier, protocol)
			})
			sessions.POST("/auto-heartbeat", func(c *gin.Context) {
				handler.AutoHeartbeatHandler(c, service, notifier, protocol)
			})
			sessions.POST("/start", func(c *gin.Context) {
				handler.SessionStartHandler(c, service, notifier, protocol)
			})
			sessions.POST("/end", func(c *gin.Context) {
				handler.SessionEndHandler(c, service, notifier, protocol)
			})
			sessions.PUT("/:id", func(c *gin.Context) {
				handler.UpdateSessionHandler(c, service, notifier, protocol)
			})
			sessions.DELETE("/:id", func(c *gin.Context) {
				handler.DeleteSessionHandler(c, service)
			})
			sessions.POST("/:id/heartbeat", func(c *gin.Context) {
				handler.HeartbeatHandler(c, service)
			})
			sessions.POST("/:id/announce", func(c *gin.Context) {
				handler.AnnounceHandler(c, service, notifier, protocol)
			})
		}
	}

	// Static dashboard; API routes above take precedence.
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.PublicDir))))

	return router
}

func main() {
	cfg := config.Load(os.Args[1:])

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	var cache usecase.ListCache
	if cfg.RedisURL != "" {
		sessionCache, err := services.NewSessionCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Printf("Redis cache unavailable, continuing without it: %v", err)
		} else {
			log.Printf("Session list caching enabled")
			cache = sessionCache
		}
	}

	service := usecase.NewSessionService(store, cache)
	notifier := services.NewNotifier(services.NotifierConfig{
		WebhookURL:         cfg.WebhookURL,
		WebhookSource:      cfg.WebhookSource,
		DashboardPublicURL: cfg.DashboardPublicURL,
		DefaultProtocol:    cfg.DashboardPublicProtocol,
		PublicPort:         cfg.DashboardPublicPort,
	})
	if notifier.Enabled() {
		log.Printf("Webhook notifications enabled (%s)", cfg.WebhookSource)
	} else {
		log.Printf("Webhook notifications disabled")
	}

	router := setupRouter(cfg, service, notifier)
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("RDP session monitor listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
