package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

// fakeProvider implements Provider with pluggable behavior for tests.
type fakeProvider struct {
	complete   func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	embed      func(ctx context.Context, model string, inputs []string) ([][]float32, error)
	jsonSchema bool
}

func (f *fakeProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.complete == nil {
		return &ChatResponse{Content: "ok"}, nil
	}
	return f.complete(ctx, req)
}

func (f *fakeProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if f.embed == nil {
		out := make([][]float32, len(inputs))
		for i := range out {
			out[i] = []float32{0}
		}
		return out, nil
	}
	return f.embed(ctx, model, inputs)
}

func (f *fakeProvider) SupportsJSONSchema() bool { return f.jsonSchema }

func (f *fakeProvider) Name() string { return "fake" }

func TestTransient_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{429, true},
		{408, true},
		{500, true},
		{502, true},
		{503, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
	}

	for _, tt := range tests {
		err := fmt.Errorf("completion: %w", &StatusError{Status: tt.status})
		if got := Transient(err); got != tt.want {
			t.Errorf("Transient(status %d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTransient_ContextErrors(t *testing.T) {
	if Transient(context.Canceled) {
		t.Error("Transient(Canceled) = true, want false")
	}
	if !Transient(context.DeadlineExceeded) {
		t.Error("Transient(DeadlineExceeded) = false, want true")
	}
	if Transient(nil) {
		t.Error("Transient(nil) = true, want false")
	}
}

func TestTransient_NetworkErrors(t *testing.T) {
	connErr := &url.Error{Op: "Post", URL: "http://localhost:1/v1", Err: errors.New("connection refused")}
	if !Transient(connErr) {
		t.Error("Transient(connection error) = false, want true")
	}
	cancelErr := &url.Error{Op: "Post", URL: "http://localhost:1/v1", Err: context.Canceled}
	if Transient(cancelErr) {
		t.Error("Transient(wrapped cancellation) = true, want false")
	}
}

func TestTransient_PlainErrors(t *testing.T) {
	if Transient(errors.New("decoding response: unexpected EOF")) {
		t.Error("Transient(decode error) = true, want false")
	}
	if Transient(fmt.Errorf("%w: %q", ErrUnknownModel, "nope")) {
		t.Error("Transient(unknown model) = true, want false")
	}
}
