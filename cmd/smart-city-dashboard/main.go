package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // WeatherAPI zone names resolve without system tzdata

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/smart-city-dashboard/internal/api/http"
	"github.com/i474232898/smart-city-dashboard/internal/config"
	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
	"github.com/i474232898/smart-city-dashboard/internal/dashboard/providers"
	"github.com/i474232898/smart-city-dashboard/internal/projector"
	"github.com/i474232898/smart-city-dashboard/internal/scheduler"
	"github.com/i474232898/smart-city-dashboard/internal/store"
)

func main() {
	// Load configuration (.env, optional YAML file, environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory dashboard state; nothing outlives the process.
	memStore := store.NewMemoryStore(cfg.DefaultCity, cfg.StoreMaxHistory)

	// Providers with resilience (rate limit + circuit breaker + optional backoff).
	provs, err := providers.FromConfig(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to build providers: %v", err)
	}

	// Core service orchestrating providers, store and projector.
	service := dashboard.NewService(memStore, provs, projector.Project,
		dashboard.WithPassTimeout(cfg.PassTimeout),
		dashboard.WithMonthlyKwh(cfg.AssumedMonthlyKwh),
	)

	// Scheduler performing the initial load and the periodic refresh.
	sched := scheduler.New(cfg.RefreshInterval, cfg.PassTimeout, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "smart-city-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.PassTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "smart-city-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Printf("INFO: listening on :%s (weather=%s, air quality=%s)", cfg.Port, cfg.WeatherProvider, cfg.AirQualityProvider)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
