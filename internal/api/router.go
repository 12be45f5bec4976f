// Package api serves the Telegram webhook and health endpoints.
package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dvloznov/manual-tx-bot/internal/api/handlers"
	"github.com/dvloznov/manual-tx-bot/internal/api/middleware"
)

// DefaultWebhookPath is used when the public webhook URL has no path.
const DefaultWebhookPath = "/telegram/webhook"

// Config holds router configuration.
type Config struct {
	Logger         zerolog.Logger
	WebhookPath    string
	WebhookSecret  string
	WebhookHandler *handlers.WebhookHandler
}

// NewRouter creates the HTTP router.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/health", handlers.Health)

	if cfg.WebhookHandler != nil {
		path := cfg.WebhookPath
		if path == "" {
			path = DefaultWebhookPath
		}
		r.With(middleware.SecretToken(cfg.WebhookSecret)).Post(path, cfg.WebhookHandler.ReceiveUpdate)
	}

	return r
}

// WebhookPath returns the path part of the public webhook URL.
func WebhookPath(webhookURL string) string {
	u, err := url.Parse(webhookURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultWebhookPath
	}
	return u.Path
}

// NewServer wraps the router in an http.Server with the usual timeouts.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
