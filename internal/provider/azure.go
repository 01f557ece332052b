package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrUnknownModel is wrapped by errors returned for model names that map to
// no configured deployment.
var ErrUnknownModel = errors.New("unknown model")

// Azure talks to an Azure OpenAI resource. Logical model names are mapped
// to the configured deployments; the deployment decides the actual model.
type Azure struct {
	endpoint            string
	apiKey              string
	chatAPIVersion      string
	embeddingAPIVersion string
	chat                string
	chatMini            string
	embedding           string
	httpClient          *http.Client
}

// AzureOptions configures an Azure client. All fields are required except
// the API versions, which fall back to the values the deployment contract
// ships with.
type AzureOptions struct {
	Endpoint            string
	APIKey              string
	ChatAPIVersion      string
	EmbeddingAPIVersion string
	DeploymentChat      string
	DeploymentChatMini  string
	DeploymentEmbedding string
}

// NewAzure creates a client for the given Azure OpenAI resource.
func NewAzure(opts AzureOptions) *Azure {
	return &Azure{
		endpoint:            strings.TrimRight(opts.Endpoint, "/"),
		apiKey:              opts.APIKey,
		chatAPIVersion:      opts.ChatAPIVersion,
		embeddingAPIVersion: opts.EmbeddingAPIVersion,
		chat:                opts.DeploymentChat,
		chatMini:            opts.DeploymentChatMini,
		embedding:           opts.DeploymentEmbedding,
		httpClient:          &http.Client{Timeout: requestTimeout},
	}
}

func (a *Azure) Name() string { return "azure" }

// SupportsJSONSchema reports whether the configured chat API version is
// recent enough for json_schema response formats (2024-08-01 and later).
func (a *Azure) SupportsJSONSchema() bool {
	return apiVersionAtLeast(a.chatAPIVersion, "2024-08-01")
}

// API versions are date-prefixed ("2024-12-01-preview"), so a prefix
// comparison orders them correctly.
func apiVersionAtLeast(version, min string) bool {
	if len(version) < len(min) {
		return false
	}
	return version[:len(min)] >= min
}

// Deployment maps a logical model name onto one of the configured
// deployments. Known model aliases map to the matching deployment, exact
// deployment names pass through, and the empty string means the primary
// chat deployment.
func (a *Azure) Deployment(model string) (string, error) {
	switch model {
	case "", a.chat, "gpt-4o", "gpt-4":
		return a.chat, nil
	case a.chatMini, "gpt-4o-mini":
		return a.chatMini, nil
	case a.embedding, "text-embedding-ada-002", "text-embedding-3-small":
		return a.embedding, nil
	}
	return "", fmt.Errorf("%w: %q maps to no configured deployment", ErrUnknownModel, model)
}

func (a *Azure) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	deployment, err := a.Deployment(req.Model)
	if err != nil {
		return nil, err
	}

	body := wireChatRequest{
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: wireFormat(req.Format),
	}

	var wire wireChatResponse
	if err := a.post(ctx, a.url(deployment, "chat/completions", a.chatAPIVersion), body, &wire); err != nil {
		return nil, err
	}
	return wire.toResponse()
}

func (a *Azure) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	deployment := a.embedding
	if model != "" {
		var err error
		if deployment, err = a.Deployment(model); err != nil {
			return nil, err
		}
	}

	var wire wireEmbeddingResponse
	if err := a.post(ctx, a.url(deployment, "embeddings", a.embeddingAPIVersion), wireEmbeddingRequest{Input: inputs}, &wire); err != nil {
		return nil, err
	}
	return wire.vectors(len(inputs))
}

func (a *Azure) url(deployment, operation, apiVersion string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		a.endpoint, url.PathEscape(deployment), operation, url.QueryEscape(apiVersion))
}

func (a *Azure) post(ctx context.Context, u string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
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
