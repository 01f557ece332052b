package api

import (
	"encoding/json"
	"net/http"

	"github.com/crypticpy/COA-AI-Template/internal/gateway"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

type completionRequest struct {
	Model       string            `json:"model"`
	Messages    []gateway.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

type completionResponse struct {
	Content      string         `json:"content"`
	Model        string         `json:"model"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Attempts     int            `json:"attempts"`
	Usage        provider.Usage `json:"usage"`
}

func handleCompletions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Gateway.Complete(r.Context(), gateway.Request{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			gatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, completionResponse{
			Content:      res.Content,
			Model:        res.Model,
			FinishReason: res.FinishReason,
			Attempts:     res.Attempts,
			Usage:        res.Usage,
		})
	}
}

type structuredRequest struct {
	completionRequest
	Schema *gateway.Schema `json:"schema"`
}

type structuredResponse struct {
	Data     json.RawMessage `json:"data"`
	Model    string          `json:"model"`
	Attempts int             `json:"attempts"`
	Usage    provider.Usage  `json:"usage"`
}

func handleStructuredCompletions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req structuredRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Gateway.CompleteJSON(r.Context(), gateway.Request{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}, req.Schema)
		if err != nil {
			gatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, structuredResponse{
			Data:     json.RawMessage(res.Content),
			Model:    res.Model,
			Attempts: res.Attempts,
			Usage:    res.Usage,
		})
	}
}
