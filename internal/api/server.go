// Package api implements the HTTP surface of the AI gateway: completion
// and analysis endpoints backed by the retrying gateway, embedding and
// health endpoints backed by the provider directly, and the client-error
// beacon that feeds the asset recovery monitor.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crypticpy/COA-AI-Template/internal/auth"
	"github.com/crypticpy/COA-AI-Template/internal/gateway"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
	"github.com/crypticpy/COA-AI-Template/internal/recovery"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Gateway  *gateway.Gateway
	Provider provider.Provider
	Verifier auth.Verifier     // nil disables bearer auth
	Monitor  *recovery.Monitor // nil disables the client-error beacon
	Webapp   http.Handler      // nil disables static file serving

	Environment string
	Version     string
	CORSOrigins []string

	// ChatModel and EmbedModel are the logical models used for the AI
	// health probes; EmbedModel also backs the embeddings endpoint when a
	// request names no model of its own.
	ChatModel  string
	EmbedModel string

	Logger *slog.Logger
}

// NewHandler assembles the full router: request ID and logging middleware,
// CORS, the versioned API, and the SPA file server as the root fallback.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Verifier == nil {
		deps.Logger.Warn("no API token or JWT secret configured, authenticated endpoints are open to anyone")
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			httpError(w, http.StatusNotFound, "not_found", "no such endpoint")
		})

		r.Get("/health", handleHealth(deps))
		r.Get("/health/ai", handleAIHealth(deps))
		r.Post("/client-errors", handleClientErrors(deps))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(deps.Verifier))
			r.Get("/me", handleMe())
			r.Post("/completions", handleCompletions(deps))
			r.Post("/completions/structured", handleStructuredCompletions(deps))
			r.Post("/analyze", handleAnalyze(deps))
			r.Post("/embeddings", handleEmbeddings(deps))
		})
	})

	if deps.Webapp != nil {
		r.Handle("/*", deps.Webapp)
	}

	return r
}
