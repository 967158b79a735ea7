package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portfolio-site/portfolio-api/internal/middleware"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// RouterConfig carries the handlers and settings the router mounts.
type RouterConfig struct {
	Chat     *ChatHandler
	Turns    *TurnHandler
	Contact  *ContactHandler
	LeetCode *LeetCodeHandler
	Health   *HealthHandler

	JWTSecret         string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	Logger *logger.Logger
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Post("/chat", cfg.Chat.Chat)
			r.Post("/portfolio/chat", cfg.Chat.Chat)
			r.Post("/contact", cfg.Contact.Submit)
		})

		r.Get("/leetcode/{username}", cfg.LeetCode.Rating)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireScope(middleware.ScopeChatRead))

			r.Get("/chat/turns", cfg.Turns.List)
		})
	})

	return r
}
