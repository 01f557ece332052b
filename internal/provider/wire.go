package provider

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 60 * time.Second
	maxErrorBody   = 32 << 10
)

// wireChatRequest is the OpenAI-compatible chat completion body. Azure
// omits Model (the deployment is in the URL path); compat endpoints
// require it.
type wireChatRequest struct {
	Model          string    `json:"model,omitempty"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	ResponseFormat any       `json:"response_format,omitempty"`
}

type wireChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func (w *wireChatResponse) toResponse() (*ChatResponse, error) {
	if len(w.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}
	c := w.Choices[0]
	return &ChatResponse{
		Content:      c.Message.Content,
		FinishReason: c.FinishReason,
		Model:        w.Model,
		Usage:        w.Usage,
	}, nil
}

type wireEmbeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type wireEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// vectors reorders the returned embeddings by their index field so the
// result lines up with the request inputs.
func (w *wireEmbeddingResponse) vectors(n int) ([][]float32, error) {
	if len(w.Data) != n {
		return nil, fmt.Errorf("expected %d embeddings, got %d", n, len(w.Data))
	}
	out := make([][]float32, n)
	for _, d := range w.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// wireFormat translates a ResponseFormat into the response_format wire
// object.
func wireFormat(f *ResponseFormat) any {
	if f == nil {
		return nil
	}
	switch f.Type {
	case "json_schema":
		return map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   f.Name,
				"strict": f.Strict,
				"schema": f.Schema,
			},
		}
	default:
		return map[string]string{"type": f.Type}
	}
}

func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
