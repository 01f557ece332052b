package api

import (
	"context"
	"net/http"
	"time"

	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

const aiHealthTimeout = 15 * time.Second

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": deps.Environment,
			"version":     deps.Version,
		})
	}
}

// handleAIHealth probes the upstream with a tiny completion and embedding
// request and reports per-capability results.
func handleAIHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), aiHealthTimeout)
		defer cancel()

		health, err := provider.Validate(ctx, deps.Provider, deps.ChatModel, deps.EmbedModel)
		if err != nil {
			deps.Logger.Warn("ai health probe failed",
				"provider", health.Provider,
				"chat_completion", health.ChatCompletion,
				"embeddings", health.Embeddings,
				"error", err,
			)
			httpError(w, http.StatusServiceUnavailable, "api_error", "AI service unavailable: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, health)
	}
}
