package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/brighttanat/weather-warehouse-etl/internal/api/http"
	"github.com/brighttanat/weather-warehouse-etl/internal/config"
	"github.com/brighttanat/weather-warehouse-etl/internal/scheduler"
	"github.com/brighttanat/weather-warehouse-etl/internal/warehouse"
	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
	"github.com/brighttanat/weather-warehouse-etl/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var zapLogger *zap.Logger
	if cfg.Debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	// Warehouse connection and idempotent schema setup.
	wh, err := warehouse.New(cfg.Warehouse, logger)
	if err != nil {
		logger.Fatalf("failed to connect to warehouse: %v", err)
	}
	defer wh.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := wh.InitSchema(ctx); err != nil {
		logger.Fatalf("failed to initialize warehouse schema: %v", err)
	}

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	client := providers.NewOpenMeteoClient(httpClient, cfg.ForecastURL, logger)
	bronze := warehouse.NewBronzeLoader(wh)
	recorder := warehouse.NewErrorRecorder(wh, client.Endpoint())
	service := weather.NewService(client, bronze, recorder, logger)

	transformer := warehouse.NewSilverTransformer(wh)
	backfill := warehouse.NewBackfillRunner(wh, transformer)

	// Scheduler for the daily extraction and the incremental transform.
	sched := scheduler.New(service, transformer, cfg.Locations, cfg.HourlyVariables, cfg.ForecastDays, cfg.ExtractCron, cfg.TransformInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Control-surface app configuration.
	app := fiber.New(fiber.Config{
		AppName:               "weather-warehouse-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-warehouse-etl",
		})
	})

	httpapi.RegisterRoutes(app, sched, transformer, backfill, wh)

	port := cfg.Port
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
}
