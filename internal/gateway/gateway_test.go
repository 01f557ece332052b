package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

// stubProvider implements provider.Provider with a pluggable Complete.
type stubProvider struct {
	complete   func(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error)
	jsonSchema bool
}

func (s *stubProvider) Complete(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	return s.complete(ctx, req)
}

func (s *stubProvider) Embed(context.Context, string, []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) SupportsJSONSchema() bool { return s.jsonSchema }

func (s *stubProvider) Name() string { return "stub" }

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func userMessage(content string) []Message {
	return []Message{{Role: provider.RoleUser, Content: content}}
}

func TestComplete(t *testing.T) {
	var got provider.ChatRequest
	p := &stubProvider{
		complete: func(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
			got = req
			return &provider.ChatResponse{Content: "Hello!", FinishReason: "stop"}, nil
		},
	}

	g := New(p, WithLogger(quietLogger()))
	res, err := g.Complete(context.Background(), Request{Messages: userMessage("hi")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if res.Content != "Hello!" {
		t.Errorf("content = %q, want %q", res.Content, "Hello!")
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if got.Temperature != 0.7 {
		t.Errorf("temperature = %v, want default 0.7", got.Temperature)
	}
	if got.MaxTokens != 1000 {
		t.Errorf("max tokens = %d, want default 1000", got.MaxTokens)
	}
}

func TestComplete_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	starts := make([]time.Time, 0, 3)

	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			starts = append(starts, time.Now())
			if calls.Add(1) < 3 {
				return nil, &provider.StatusError{Status: 429, Body: "slow down"}
			}
			return &provider.ChatResponse{Content: "ok"}, nil
		},
	}

	g := New(p, WithLogger(quietLogger()), WithBaseDelay(100*time.Millisecond))
	res, err := g.Complete(context.Background(), Request{Messages: userMessage("hi")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("upstream calls = %d, want 3", got)
	}

	// Delays grow roughly geometrically: first near the base delay, second
	// near double. Jitter stretches each by up to a quarter.
	first := starts[1].Sub(starts[0])
	second := starts[2].Sub(starts[1])
	if first < 100*time.Millisecond || first > 180*time.Millisecond {
		t.Errorf("first delay = %v, want about 100ms", first)
	}
	if second < 200*time.Millisecond || second > 330*time.Millisecond {
		t.Errorf("second delay = %v, want about 200ms", second)
	}
	if second <= first {
		t.Errorf("second delay %v not longer than first %v", second, first)
	}
}

func TestComplete_TransientExhausted(t *testing.T) {
	var calls atomic.Int32
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			calls.Add(1)
			return nil, &provider.StatusError{Status: 503}
		},
	}

	g := New(p, WithLogger(quietLogger()), WithBaseDelay(time.Millisecond))
	_, err := g.Complete(context.Background(), Request{Messages: userMessage("hi")})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want exactly 3", got)
	}

	var se *provider.StatusError
	if !errors.As(err, &se) || se.Status != 503 {
		t.Errorf("last error not preserved, got %v", err)
	}
}

func TestComplete_PermanentFailsFast(t *testing.T) {
	var calls atomic.Int32
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			calls.Add(1)
			return nil, &provider.StatusError{Status: 400, Body: `{"error":"bad request"}`}
		},
	}

	g := New(p, WithLogger(quietLogger()))
	_, err := g.Complete(context.Background(), Request{Messages: userMessage("hi")})

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *RejectedError", err)
	}
	if rejected.Status != 400 {
		t.Errorf("status = %d, want 400", rejected.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want exactly 1", got)
	}
}

func TestComplete_UnknownModelIsInvalidRequest(t *testing.T) {
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			return nil, fmt.Errorf("%w: %q maps to no configured deployment", provider.ErrUnknownModel, "claude-3")
		},
	}

	g := New(p, WithLogger(quietLogger()))
	_, err := g.Complete(context.Background(), Request{Messages: userMessage("hi")})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestComplete_CancelDuringBackoff(t *testing.T) {
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			return nil, &provider.StatusError{Status: 429}
		},
	}

	g := New(p, WithLogger(quietLogger()), WithBaseDelay(10*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Complete(ctx, Request{Messages: userMessage("hi")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Complete blocked %v after cancellation, want prompt return", elapsed)
	}
}

func TestComplete_Validation(t *testing.T) {
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			t.Error("unexpected upstream call for invalid request")
			return nil, nil
		},
	}
	g := New(p, WithLogger(quietLogger()))

	tests := []struct {
		name string
		req  Request
	}{
		{"empty messages", Request{}},
		{"unknown role", Request{Messages: []Message{{Role: "robot", Content: "hi"}}}},
		{"empty content", Request{Messages: []Message{{Role: provider.RoleUser, Content: ""}}}},
		{"temperature too high", Request{Messages: userMessage("hi"), Temperature: 2.5}},
		{"temperature negative", Request{Messages: userMessage("hi"), Temperature: -0.1}},
		{"negative max tokens", Request{Messages: userMessage("hi"), MaxTokens: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Complete(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestCompleteJSON(t *testing.T) {
	var got provider.ChatRequest
	p := &stubProvider{
		complete: func(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
			got = req
			return &provider.ChatResponse{Content: `{"sentiment":"positive","score":0.9}`}, nil
		},
	}

	schema := &Schema{
		Type: "object",
		Properties: map[string]Property{
			"sentiment": {Type: "string", Enum: []string{"positive", "negative", "neutral"}},
			"score":     {Type: "number"},
		},
		Required: []string{"sentiment", "score"},
	}

	g := New(p, WithLogger(quietLogger()))
	res, err := g.CompleteJSON(context.Background(), Request{Messages: userMessage("rate this")}, schema)
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}

	if got.Format == nil || got.Format.Type != "json_object" {
		t.Errorf("format = %+v, want json_object fallback", got.Format)
	}
	if got.Temperature != 0.3 {
		t.Errorf("temperature = %v, want structured default 0.3", got.Temperature)
	}
	if got.MaxTokens != 2000 {
		t.Errorf("max tokens = %d, want structured default 2000", got.MaxTokens)
	}

	var parsed struct {
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}
	if err := res.Decode(&parsed); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if parsed.Sentiment != "positive" || parsed.Score != 0.9 {
		t.Errorf("parsed = %+v, want positive/0.9", parsed)
	}
}

func TestCompleteJSON_SchemaFormatWhenSupported(t *testing.T) {
	var got provider.ChatRequest
	p := &stubProvider{
		jsonSchema: true,
		complete: func(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
			got = req
			return &provider.ChatResponse{Content: `{"ok":true}`}, nil
		},
	}

	schema := &Schema{Type: "object", Properties: map[string]Property{"ok": {Type: "boolean"}}}
	g := New(p, WithLogger(quietLogger()))
	if _, err := g.CompleteJSON(context.Background(), Request{Messages: userMessage("go")}, schema); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}

	if got.Format == nil || got.Format.Type != "json_schema" {
		t.Fatalf("format = %+v, want json_schema", got.Format)
	}
	if !got.Format.Strict || len(got.Format.Schema) == 0 {
		t.Errorf("format = %+v, want strict with schema attached", got.Format)
	}
}

func TestCompleteJSON_MalformedOutput(t *testing.T) {
	var calls atomic.Int32
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			calls.Add(1)
			return &provider.ChatResponse{Content: "Sure! Here is the JSON you asked for:"}, nil
		},
	}

	schema := &Schema{Type: "object"}
	g := New(p, WithLogger(quietLogger()))
	_, err := g.CompleteJSON(context.Background(), Request{Messages: userMessage("go")}, schema)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (malformed output is not retried)", got)
	}
}

func TestCompleteJSON_SchemaViolation(t *testing.T) {
	p := &stubProvider{
		complete: func(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
			return &provider.ChatResponse{Content: `{"score":"high"}`}, nil
		},
	}

	schema := &Schema{
		Type:       "object",
		Properties: map[string]Property{"score": {Type: "number"}},
		Required:   []string{"score"},
	}
	g := New(p, WithLogger(quietLogger()))
	_, err := g.CompleteJSON(context.Background(), Request{Messages: userMessage("go")}, schema)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestCompleteJSON_RequiresSchema(t *testing.T) {
	g := New(&stubProvider{}, WithLogger(quietLogger()))
	_, err := g.CompleteJSON(context.Background(), Request{Messages: userMessage("go")}, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestQuickAnalysis(t *testing.T) {
	var got provider.ChatRequest
	p := &stubProvider{
		complete: func(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
			got = req
			return &provider.ChatResponse{Content: "summary"}, nil
		},
	}

	g := New(p, WithLogger(quietLogger()))
	res, err := g.QuickAnalysis(context.Background(), "Summarize the text.", "long document")
	if err != nil {
		t.Fatalf("QuickAnalysis: %v", err)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", got.Model)
	}
	if got.Temperature != 0.3 || got.MaxTokens != 500 {
		t.Errorf("temperature/max tokens = %v/%d, want 0.3/500", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != provider.RoleSystem || got.Messages[1].Role != provider.RoleUser {
		t.Errorf("messages = %+v, want system then user", got.Messages)
	}
	if res.Content != "summary" {
		t.Errorf("content = %q, want summary", res.Content)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond
	limit := time.Second

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	var prev time.Duration
	for attempt, w := range want {
		got := backoffDelay(attempt, base, limit)
		if got != w {
			t.Errorf("backoffDelay(%d) = %v, want %v", attempt, got, w)
		}
		if got < prev {
			t.Errorf("backoffDelay(%d) = %v decreased below %v", attempt, got, prev)
		}
		prev = got
	}

	// Attempts large enough to overflow the doubling stay at the limit.
	if got := backoffDelay(80, base, limit); got != limit {
		t.Errorf("backoffDelay(80) = %v, want %v", got, limit)
	}
}

func TestJitter(t *testing.T) {
	d := 100 * time.Millisecond
	for range 100 {
		got := jitter(d)
		if got < d || got > d+d/4 {
			t.Fatalf("jitter(%v) = %v, want within [%v, %v]", d, got, d, d+d/4)
		}
	}
	if got := jitter(0); got != 0 {
		t.Errorf("jitter(0) = %v, want 0", got)
	}
}
