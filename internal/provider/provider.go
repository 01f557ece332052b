package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation in the OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects the output shape for a chat completion: free-form
// JSON ("json_object") or schema-constrained JSON ("json_schema"). A nil
// *ResponseFormat means plain text.
type ResponseFormat struct {
	Type   string
	Name   string
	Schema json.RawMessage
	Strict bool
}

// ChatRequest is a provider-neutral chat completion request. Model is a
// logical model name; the Azure client maps it to a deployment, the compat
// client passes it through.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Format      *ResponseFormat
}

// Usage reports token consumption for one upstream call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the assistant's reply to a ChatRequest.
type ChatResponse struct {
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
}

// Provider is a chat completion and embedding backend.
type Provider interface {
	// Complete performs a single chat completion call. It does not retry;
	// callers decide retry policy based on error classification.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed returns one embedding vector per input, in input order.
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)

	// SupportsJSONSchema reports whether the backend can enforce a JSON
	// schema server-side via response_format.
	SupportsJSONSchema() bool

	// Name identifies the backend in logs and health output.
	Name() string
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Transient reports whether the status is worth retrying. Rate limits,
// request timeouts and server-side failures can clear on a later attempt;
// other 4xx statuses are deterministic rejections.
func (e *StatusError) Transient() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout ||
		e.Status >= 500
}

// Transient classifies an error from Complete or Embed. Upstream 429, 408
// and 5xx responses, timeouts and connection failures are transient;
// context cancellation and other rejections are not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
