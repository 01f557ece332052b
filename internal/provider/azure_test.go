package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testAzure(baseURL string) *Azure {
	return NewAzure(AzureOptions{
		Endpoint:            baseURL,
		APIKey:              "test-key",
		ChatAPIVersion:      "2024-12-01-preview",
		EmbeddingAPIVersion: "2023-05-15",
		DeploymentChat:      "gpt-4.1",
		DeploymentChatMini:  "gpt-4.1-mini",
		DeploymentEmbedding: "text-embedding-ada-002",
	})
}

func TestAzureComplete(t *testing.T) {
	var gotPath, gotVersion, gotKey string
	var gotBody map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"model":"gpt-4.1","choices":[{"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer srv.Close()

	resp, err := testAzure(srv.URL).Complete(context.Background(), ChatRequest{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotPath != "/openai/deployments/gpt-4.1/chat/completions" {
		t.Errorf("path = %q, want deployment route", gotPath)
	}
	if gotVersion != "2024-12-01-preview" {
		t.Errorf("api-version = %q, want 2024-12-01-preview", gotVersion)
	}
	if gotKey != "test-key" {
		t.Errorf("api-key header = %q, want test-key", gotKey)
	}
	if _, ok := gotBody["model"]; ok {
		t.Error("request body contains model, want it only in the URL path")
	}
	if resp.Content != "Hi there" {
		t.Errorf("content = %q, want %q", resp.Content, "Hi there")
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("total tokens = %d, want 5", resp.Usage.TotalTokens)
	}
}

func TestAzureComplete_UnknownModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected upstream call for unknown model")
	}))
	defer srv.Close()

	_, err := testAzure(srv.URL).Complete(context.Background(), ChatRequest{
		Model:    "claude-3",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
}

func TestAzureComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":"429","message":"rate limit exceeded"}}`)
	}))
	defer srv.Close()

	_, err := testAzure(srv.URL).Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", se.Status)
	}
	if !se.Transient() {
		t.Error("Transient() = false for 429, want true")
	}
}

func TestAzureDeployment(t *testing.T) {
	a := testAzure("https://example.openai.azure.com")

	tests := []struct {
		model string
		want  string
	}{
		{"", "gpt-4.1"},
		{"gpt-4o", "gpt-4.1"},
		{"gpt-4", "gpt-4.1"},
		{"gpt-4.1", "gpt-4.1"},
		{"gpt-4o-mini", "gpt-4.1-mini"},
		{"gpt-4.1-mini", "gpt-4.1-mini"},
		{"text-embedding-ada-002", "text-embedding-ada-002"},
		{"text-embedding-3-small", "text-embedding-ada-002"},
	}
	for _, tt := range tests {
		got, err := a.Deployment(tt.model)
		if err != nil {
			t.Errorf("Deployment(%q): %v", tt.model, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Deployment(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}

	if _, err := a.Deployment("claude-3"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Deployment(claude-3) err = %v, want ErrUnknownModel", err)
	}
}

func TestAzureSupportsJSONSchema(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"2024-12-01-preview", true},
		{"2024-08-01-preview", true},
		{"2024-08-01", true},
		{"2024-06-01", false},
		{"2023-05-15", false},
		{"", false},
	}
	for _, tt := range tests {
		a := NewAzure(AzureOptions{ChatAPIVersion: tt.version})
		if got := a.SupportsJSONSchema(); got != tt.want {
			t.Errorf("SupportsJSONSchema(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestAzureEmbed(t *testing.T) {
	var gotPath, gotVersion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		// Return embeddings out of order to exercise index-based reordering.
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[2.0]},{"index":0,"embedding":[1.0]}]}`)
	}))
	defer srv.Close()

	vecs, err := testAzure(srv.URL).Embed(context.Background(), "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if gotPath != "/openai/deployments/text-embedding-ada-002/embeddings" {
		t.Errorf("path = %q, want embedding deployment route", gotPath)
	}
	if gotVersion != "2023-05-15" {
		t.Errorf("api-version = %q, want 2023-05-15", gotVersion)
	}
	if len(vecs) != 2 || vecs[0][0] != 1.0 || vecs[1][0] != 2.0 {
		t.Errorf("vectors = %v, want input order restored", vecs)
	}
}

func TestAzureEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1.0]}]}`)
	}))
	defer srv.Close()

	if _, err := testAzure(srv.URL).Embed(context.Background(), "", []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}
