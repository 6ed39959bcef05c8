package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-parser/cmd/mainconfig"
	"github.com/wolfman30/appointment-parser/internal/api/router"
	"github.com/wolfman30/appointment-parser/internal/app/bootstrap"
	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/appointment-parser/internal/http/middleware"
	"github.com/wolfman30/appointment-parser/internal/observability/metrics"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// server is everything main needs to run and later tear down.
type server struct {
	handler http.Handler
	limiter *httpmiddleware.RateLimiter
	redis   *redis.Client
}

func (s *server) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel).With("service", "appointment-parser", "version", cfg.Version)
	logger.Info("starting appointment-parser API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"ocr_provider", cfg.OCRProvider,
		"ocr_enabled", cfg.OCREnabled(),
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.limiter != nil {
		go app.limiter.Run(ctx, time.Minute)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.OCRTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildServer wires vocabulary, cache, OCR, parser, handlers and router.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*server, error) {
	vocab, err := bootstrap.LoadVocabulary(cfg, logger)
	if err != nil {
		return nil, err
	}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	recognizer, err := bootstrap.BuildRecognizer(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		logger.Info("result cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ResultCacheTTL)
	}

	metricsHandler, parseMetrics := setupParseMetrics()

	parser, err := bootstrap.BuildParser(cfg, vocab, bootstrap.ParserDeps{
		Recognizer: recognizer,
		Cache:      bootstrap.BuildResultCache(redisClient, cfg),
		Metrics:    parseMetrics,
	}, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	handlerCfg := handlers.ParseHandlerConfig{
		Parser:         parser,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		OCRTimeout:     cfg.OCRTimeout,
		Version:        cfg.Version,
	}
	if images := bootstrap.BuildImageSource(cfg, awsCfg); images != nil {
		handlerCfg.Images = images
		logger.Info("s3 image source enabled", "bucket", cfg.ImageBucket)
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.ImageRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.ImageRateLimitRPS, cfg.ImageRateLimitBurst)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		ParseHandler:       handlers.NewParseHandler(handlerCfg),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ImageRateLimiter:   limiter,
		ImageEnabled:       recognizer != nil,
	})
	return &server{handler: handler, limiter: limiter, redis: redisClient}, nil
}

// setupParseMetrics builds a private registry so tests can call it repeatedly.
func setupParseMetrics() (http.Handler, *metrics.ParseMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewParseMetrics(reg)
}
