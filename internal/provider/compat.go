package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Compat talks to any OpenAI-compatible endpoint (LM Studio, Ollama's
// compat mode, vLLM). Model names pass through untouched; an empty name
// falls back to the configured default, mirroring how Azure resolves the
// empty string to its primary deployment.
type Compat struct {
	baseURL    string
	apiKey     string
	jsonSchema bool
	chatModel  string
	embedModel string
	httpClient *http.Client
}

// CompatOptions configures a Compat client. BaseURL points at the API root
// including the version prefix, e.g. "http://localhost:11434/v1". APIKey is
// optional. JSONSchema declares whether the endpoint honors json_schema
// response formats; most local servers do not. ChatModel and EmbedModel are
// used when a request names no model.
type CompatOptions struct {
	BaseURL    string
	APIKey     string
	JSONSchema bool
	ChatModel  string
	EmbedModel string
}

// NewCompat creates a client for an OpenAI-compatible endpoint.
func NewCompat(opts CompatOptions) *Compat {
	return &Compat{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		jsonSchema: opts.JSONSchema,
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Compat) Name() string { return "compat" }

func (c *Compat) SupportsJSONSchema() bool { return c.jsonSchema }

func (c *Compat) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	body := wireChatRequest{
		Model:          model,
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: wireFormat(req.Format),
	}

	var wire wireChatResponse
	if err := c.post(ctx, c.baseURL+"/chat/completions", body, &wire); err != nil {
		return nil, err
	}
	return wire.toResponse()
}

func (c *Compat) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if model == "" {
		model = c.embedModel
	}

	var wire wireEmbeddingResponse
	if err := c.post(ctx, c.baseURL+"/embeddings", wireEmbeddingRequest{Model: model, Input: inputs}, &wire); err != nil {
		return nil, err
	}
	return wire.vectors(len(inputs))
}

func (c *Compat) post(ctx context.Context, u string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
