package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/crypticpy/COA-AI-Template/internal/gateway"
	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// gatewayError maps the gateway's error taxonomy onto HTTP statuses. Caller
// mistakes are 400s; upstream rejections and bad model output are 502s so a
// client never confuses them with its own errors; exhausted retries are 503s
// because the condition is temporary and a later request may succeed.
func gatewayError(w http.ResponseWriter, err error) {
	var exhausted *gateway.ExhaustedError
	var rejected *gateway.RejectedError
	switch {
	case errors.Is(err, gateway.ErrInvalidRequest):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, gateway.ErrMalformedOutput):
		httpError(w, http.StatusBadGateway, "malformed_model_output", "%v", err)
	case errors.As(err, &exhausted):
		httpError(w, http.StatusServiceUnavailable, "upstream_unavailable", "%v", err)
	case errors.As(err, &rejected):
		httpError(w, http.StatusBadGateway, "upstream_rejected", "%v", err)
	case errors.Is(err, context.Canceled):
		// Client is gone; there is nobody to answer.
	case errors.Is(err, context.DeadlineExceeded):
		httpError(w, http.StatusGatewayTimeout, "timeout", "%v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	}
}

// embedError maps raw provider errors from the embeddings path, which does
// not go through the gateway's retry loop.
func embedError(w http.ResponseWriter, err error) {
	var se *provider.StatusError
	switch {
	case errors.As(err, &se) && !se.Transient():
		httpError(w, http.StatusBadGateway, "upstream_rejected", "%v", err)
	case provider.Transient(err):
		httpError(w, http.StatusServiceUnavailable, "upstream_unavailable", "%v", err)
	case errors.Is(err, context.Canceled):
	default:
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	}
}
