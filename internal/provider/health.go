package provider

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Health reports the outcome of probing the upstream provider.
type Health struct {
	Status         string `json:"status"`
	Provider       string `json:"provider"`
	ChatCompletion string `json:"chat_completion"`
	Embeddings     string `json:"embeddings"`
}

// Healthy reports whether every probe succeeded.
func (h Health) Healthy() bool { return h.Status == "healthy" }

// Validate probes the chat and embedding paths concurrently with minimal
// requests. The Health report is always returned; the error joins any probe
// failures so the caller can log them.
func Validate(ctx context.Context, p Provider, chatModel, embeddingModel string) (Health, error) {
	var chatErr, embedErr error

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, chatErr = p.Complete(gCtx, ChatRequest{
			Model:     chatModel,
			Messages:  []Message{{Role: "user", Content: "Hello"}},
			MaxTokens: 5,
		})
		return nil
	})
	g.Go(func() error {
		_, embedErr = p.Embed(gCtx, embeddingModel, []string{"test"})
		return nil
	})
	_ = g.Wait()

	h := Health{
		Status:         "healthy",
		Provider:       p.Name(),
		ChatCompletion: "ok",
		Embeddings:     "ok",
	}
	if chatErr != nil {
		h.Status = "degraded"
		h.ChatCompletion = "failed"
	}
	if embedErr != nil {
		h.Status = "degraded"
		h.Embeddings = "failed"
	}
	return h, errors.Join(chatErr, embedErr)
}
