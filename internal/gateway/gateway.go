package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/crypticpy/COA-AI-Template/internal/provider"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second

	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	jsonTemperature    = 0.3
	jsonMaxTokens      = 2000

	analysisModel       = "gpt-4o-mini"
	analysisTemperature = 0.3
	analysisMaxTokens   = 500
)

// Message is one chat turn. See provider.RoleSystem and friends for the
// accepted roles.
type Message = provider.Message

// Request describes a completion to perform. A zero Temperature or
// MaxTokens selects the per-operation default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Result is a completed request plus how hard the gateway worked for it.
type Result struct {
	Content      string
	Model        string
	FinishReason string
	Usage        provider.Usage
	Attempts     int
}

// Decode unmarshals the content into v. Useful after CompleteJSON.
func (r *Result) Decode(v any) error {
	return json.Unmarshal([]byte(r.Content), v)
}

// Gateway wraps a Provider with request validation, bounded retry and
// error classification. Transient upstream failures are retried with
// exponentially growing, jittered delays; deterministic rejections fail
// fast on the first attempt.
type Gateway struct {
	p             provider.Provider
	maxAttempts   int
	baseDelay     time.Duration
	maxDelay      time.Duration
	analysisModel string
	logger        *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxAttempts bounds how many times a request is tried. Values below
// one are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n >= 1 {
			g.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.maxDelay = d
		}
	}
}

// WithAnalysisModel overrides the model QuickAnalysis uses.
func WithAnalysisModel(model string) Option {
	return func(g *Gateway) { g.analysisModel = model }
}

// WithLogger sets the logger for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gateway around p.
func New(p provider.Provider, opts ...Option) *Gateway {
	g := &Gateway{
		p:             p,
		maxAttempts:   defaultMaxAttempts,
		baseDelay:     defaultBaseDelay,
		maxDelay:      defaultMaxDelay,
		analysisModel: analysisModel,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete performs a plain-text completion.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resp, attempts, err := g.do(ctx, providerRequest(req, defaultTemperature, defaultMaxTokens, nil))
	if err != nil {
		return nil, err
	}
	return newResult(resp, attempts), nil
}

// CompleteJSON performs a completion constrained to JSON and validates the
// content against schema before returning it. When the provider enforces
// schemas server-side the schema is sent along; otherwise the request falls
// back to free-form JSON mode and relies on local validation alone.
func (g *Gateway) CompleteJSON(ctx context.Context, req Request, schema *Schema) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: structured completion requires a schema", ErrInvalidRequest)
	}

	format := &provider.ResponseFormat{Type: "json_object"}
	if g.p.SupportsJSONSchema() {
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshaling schema: %w", err)
		}
		format = &provider.ResponseFormat{Type: "json_schema", Name: "response", Schema: raw, Strict: true}
	}

	resp, attempts, err := g.do(ctx, providerRequest(req, jsonTemperature, jsonMaxTokens, format))
	if err != nil {
		return nil, err
	}
	if err := schema.Validate([]byte(resp.Content)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return newResult(resp, attempts), nil
}

// QuickAnalysis runs prompt as the system instruction over text using the
// fast model with a short output budget.
func (g *Gateway) QuickAnalysis(ctx context.Context, prompt, text string) (*Result, error) {
	req := Request{
		Model: g.analysisModel,
		Messages: []Message{
			{Role: provider.RoleSystem, Content: prompt},
			{Role: provider.RoleUser, Content: text},
		},
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	}
	return g.Complete(ctx, req)
}

// do runs the retry loop: transient failures back off and try again up to
// maxAttempts times, anything else returns immediately. The attempt count
// is reported either way.
func (g *Gateway) do(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, int, error) {
	var lastErr error
	for attempt := range g.maxAttempts {
		resp, err := g.p.Complete(ctx, req)
		if err == nil {
			return resp, attempt + 1, nil
		}

		if !provider.Transient(err) {
			return nil, attempt + 1, permanent(err)
		}

		lastErr = err
		if attempt < g.maxAttempts-1 {
			delay := jitter(backoffDelay(attempt, g.baseDelay, g.maxDelay))
			g.logger.Warn("transient upstream error, backing off",
				"attempt", attempt+1,
				"max_attempts", g.maxAttempts,
				"delay", delay,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, attempt + 1, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, g.maxAttempts, &ExhaustedError{Attempts: g.maxAttempts, Err: lastErr}
}

// permanent maps a non-transient provider error to the gateway taxonomy.
func permanent(err error) error {
	var se *provider.StatusError
	if errors.As(err, &se) {
		return &RejectedError{Status: se.Status, Body: se.Body}
	}
	if errors.Is(err, provider.ErrUnknownModel) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return err
}

// backoffDelay doubles the base delay per attempt, capped at limit.
func backoffDelay(attempt int, base, limit time.Duration) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// jitter stretches d by up to a quarter so synchronized clients spread out.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + rand.N(d/4+1)
}

func validateRequest(req Request) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidRequest)
	}
	for i, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem, provider.RoleUser, provider.RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("%w: message %d has empty content", ErrInvalidRequest, i)
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v is outside [0, 2]", ErrInvalidRequest, req.Temperature)
	}
	if req.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalidRequest)
	}
	return nil
}

func providerRequest(req Request, defTemp float64, defTokens int, format *provider.ResponseFormat) provider.ChatRequest {
	pr := provider.ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Format:      format,
	}
	if pr.Temperature == 0 {
		pr.Temperature = defTemp
	}
	if pr.MaxTokens == 0 {
		pr.MaxTokens = defTokens
	}
	return pr
}

func newResult(resp *provider.ChatResponse, attempts int) *Result {
	return &Result{
		Content:      resp.Content,
		Model:        resp.Model,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		Attempts:     attempts,
	}
}
