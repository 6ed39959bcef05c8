package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/appointment-parser/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/appointment-parser/internal/http/middleware"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ParseHandler       *handlers.ParseHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ImageRateLimiter guards /parse-image; nil disables limiting.
	ImageRateLimiter *httpmiddleware.RateLimiter
	// ImageEnabled mounts /parse-image. Text parsing is always mounted.
	ImageEnabled bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", cfg.ParseHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/parse-text", cfg.ParseHandler.ParseText)
	if cfg.ImageEnabled {
		r.Group(func(images chi.Router) {
			if cfg.ImageRateLimiter != nil {
				images.Use(httpmiddleware.RateLimit(cfg.ImageRateLimiter))
			}
			images.Post("/parse-image", cfg.ParseHandler.ParseImage)
		})
	}

	return r
}
