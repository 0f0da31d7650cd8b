package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/location"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/prefs"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/transport"
	"github.com/i474232898/weather-dashboard/internal/view"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const serviceName = "weather-dashboard"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogsPath, serviceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	httpLog, err := logger.NewFileLogger(cfg.HTTPLogsPath)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to init http file logger")
	}
	defer func() { _ = httpLog.Sync() }()

	// Shared HTTP client for outbound calls, logged through the zap round tripper.
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: transport.NewRoundTripper(httpLog),
	}

	kv, err := newStore(cfg, lg)
	if err != nil {
		lg.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open preference store")
	}
	defer func() { _ = kv.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Provider behind a circuit breaker.
	client := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherOptions{
		BaseURL:  cfg.OpenWeather.URL,
		APIKey:   cfg.OpenWeather.APIKey,
		Absolute: cfg.OpenWeather.Absolute,
		Breaker: providers.BreakerConfig{
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		},
		Observer: collector,
	}, lg.With().Str("component", "openweather").Logger())

	resolver := location.NewResolver(newGeolocator(cfg, httpClient), client, lg.With().Str("component", "location").Logger())

	preferences := prefs.New(kv, prefs.Preferences{
		Unit:   cfg.DefaultUnit,
		APIKey: cfg.OpenWeather.APIKey,
	}, lg.With().Str("component", "prefs").Logger())

	if err := view.LoadTemplates(); err != nil {
		lg.Fatal().Err(err).Msg("failed to load templates")
	}

	updater := view.NewUpdater(client, resolver, preferences, view.Options{
		DefaultCity:     cfg.DefaultCity,
		ForecastEnabled: cfg.ForecastEnabled,
		EffectsEnabled:  cfg.EffectsEnabled,
		Observer:        collector,
	}, lg.With().Str("component", "view").Logger())

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := updater.Init(initCtx); err != nil {
		lg.Warn().Err(err).Msg("initial load failed; dashboard shows placeholders")
	}
	cancelInit()

	// Scheduler that periodically refreshes the known location.
	sched := scheduler.New(updater, cfg.RefreshInterval, lg.With().Str("component", "scheduler").Logger())
	if err := sched.Start(); err != nil {
		lg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
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
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(app, updater, httpapi.Options{
		Static:  view.StaticFS(),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:  lg.With().Str("component", "http").Logger(),
	})

	// Start server with graceful shutdown
	go func() {
		lg.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
}

func newStore(cfg *config.AppConfig, lg zerolog.Logger) (store.Store, error) {
	storeLog := lg.With().Str("component", "store").Logger()
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr, DB: cfg.Store.RedisDB})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.Store.RedisAddr, err)
		}
		return store.NewRedisStore(rdb, serviceName+":", storeLog), nil
	default:
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return store.NewSQLiteStore(cfg.Store.SQLitePath, storeLog)
	}
}

func newGeolocator(cfg *config.AppConfig, client *http.Client) location.Geolocator {
	switch cfg.Geolocation.Mode {
	case config.GeoStatic:
		return location.StaticGeolocator{Latitude: cfg.Geolocation.Lat, Longitude: cfg.Geolocation.Lon}
	case config.GeoDisabled:
		return location.DisabledGeolocator{}
	default:
		return location.NewIPGeolocator(client, cfg.Geolocation.URL)
	}
}
