package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/silverpoint/price-search/config"
	"github.com/silverpoint/price-search/internal/app"
	"github.com/silverpoint/price-search/internal/handlers"
	"github.com/silverpoint/price-search/internal/middleware"
	"github.com/silverpoint/price-search/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("PRICE_SEARCH_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting price search service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build search service")
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := newLimiter(cfg.RateLimit)
	if limiter != nil {
		go limiter.StartCleanup(ctx, 5*time.Minute)
		logger.Warn().
			Float64("rps", cfg.RateLimit.RequestsPerSecond).
			Int("burst", cfg.RateLimit.Burst).
			Msg("Inbound rate limit enabled; throttled searches are answered with 429")
	}

	router := newRouter(a, limiter, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

// newLimiter returns nil unless a positive inbound rate is configured.
func newLimiter(cfg config.RateLimitConfig) *middleware.IPRateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return middleware.NewIPRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		BurstSize:         cfg.Burst,
	})
}

// newRouter builds the HTTP routes. limiter may be nil.
func newRouter(a *app.App, limiter *middleware.IPRateLimiter, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimitMiddleware(limiter))
	}
	{
		api.GET("/search", handlers.NewSearchHandler(a.Search).Search)
	}

	return router
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "price-search").Logger()
	return &logger
}
