package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/logsight/backend/internal/analysis"
	"github.com/logsight/backend/internal/api/handlers"
	"github.com/logsight/backend/internal/cache/redis"
	"github.com/logsight/backend/internal/extract"
	"github.com/logsight/backend/internal/logstore"
	"github.com/logsight/backend/internal/metrics"
	"github.com/logsight/backend/internal/middleware/ratelimit"
	"github.com/logsight/backend/internal/middleware/security"
	"github.com/logsight/backend/internal/middleware/validation"
	"github.com/logsight/backend/internal/storage/sqlite"
	"github.com/logsight/backend/pkg/config"
	appLogger "github.com/logsight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting LogSight API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var resultCache analysis.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without result cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			resultCache = redisClient
		}
	}

	limits := logstore.Limits{
		Default: cfg.Store.DefaultLimit,
		Max:     cfg.Store.MaxLimit,
	}

	store := logstore.NewClient(
		cfg.Store.Endpoint,
		cfg.Store.APIKey,
		time.Duration(cfg.Store.TimeoutSec)*time.Second,
		limits,
	)

	engine := analysis.NewEngine(store, resultCache, sqliteClient, analysis.Config{
		PollInterval:        cfg.Poller.PollInterval(),
		MaxAttempts:         cfg.Poller.MaxAttempts,
		BackfillMaxAttempts: cfg.Poller.BackfillMaxAttempts,
		BackfillThreshold:   time.Duration(cfg.Poller.BackfillThresholdHours) * time.Hour,
		Limits:              limits,
		DedupWindow:         cfg.Analysis.DedupWindow(),
		WindowDays:          cfg.Analysis.WindowDays,
		Extract: extract.Config{
			Marker:           cfg.Analysis.EventMarker,
			RequireRedaction: cfg.Analysis.RequireRedaction,
			RedactionMarker:  cfg.Analysis.RedactionMarker,
		},
		CacheTTL: time.Duration(cfg.Analysis.CacheTTLSec) * time.Second,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.Log,
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.Log,
	}))

	analysisHandler := handlers.NewAnalysisHandler(engine)
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1")

	api.Post("/analysis", analysisHandler.HandleAnalysis)
	api.Get("/analysis/history", analysisHandler.GetHistory)
	api.Post("/cache/invalidate", analysisHandler.InvalidateCache)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.Handler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analysis", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
