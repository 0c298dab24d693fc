package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/imyousuf/codescribe/pkg/llm"
)

// fakeClient scripts a sequence of responses for chain tests.
type fakeClient struct {
	model string
	resp  *llm.Response
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeClient) Model() string    { return f.model }
func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Close() error     { return nil }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"http 429", &APIError{StatusCode: 429}, true},
		{"http 408", &APIError{StatusCode: 408}, true},
		{"http 500", &APIError{StatusCode: 500}, true},
		{"http 503", &APIError{StatusCode: 503}, true},
		{"http 401", &APIError{StatusCode: 401}, false},
		{"http 400", &APIError{StatusCode: 400}, false},
		{"wrapped api error", fmt.Errorf("model failed: %w", &APIError{StatusCode: 502}), true},
		{"transport", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFallbackChainFirstSucceeds(t *testing.T) {
	primary := &fakeClient{model: "m1", resp: &llm.Response{Content: "ok"}}
	backup := &fakeClient{model: "m2", resp: &llm.Response{Content: "backup"}}
	chain, err := NewFallbackChain([]llm.Client{primary, backup}, nil)
	if err != nil {
		t.Fatalf("NewFallbackChain: %v", err)
	}

	resp, err := chain.Complete(context.Background(), &llm.Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if backup.calls != 0 {
		t.Errorf("backup called %d times on primary success", backup.calls)
	}
}

func TestFallbackChainRetryableFallsBack(t *testing.T) {
	primary := &fakeClient{model: "m1", err: &APIError{StatusCode: 529, Message: "overloaded"}}
	backup := &fakeClient{model: "m2", resp: &llm.Response{Content: "backup"}}
	chain, _ := NewFallbackChain([]llm.Client{primary, backup}, nil)

	resp, err := chain.Complete(context.Background(), &llm.Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "backup" {
		t.Errorf("content = %q, want fallback response", resp.Content)
	}
}

func TestFallbackChainFatalStops(t *testing.T) {
	primary := &fakeClient{model: "m1", err: &APIError{StatusCode: 401, Message: "bad key"}}
	backup := &fakeClient{model: "m2", resp: &llm.Response{Content: "backup"}}
	chain, _ := NewFallbackChain([]llm.Client{primary, backup}, nil)

	_, err := chain.Complete(context.Background(), &llm.Request{})
	if err == nil {
		t.Fatal("expected fatal error to stop the chain")
	}
	if backup.calls != 0 {
		t.Errorf("backup called %d times after fatal error", backup.calls)
	}
}

func TestFallbackChainExhausted(t *testing.T) {
	c1 := &fakeClient{model: "m1", err: &APIError{StatusCode: 500}}
	c2 := &fakeClient{model: "m2", err: &APIError{StatusCode: 503}}
	chain, _ := NewFallbackChain([]llm.Client{c1, c2}, nil)

	_, err := chain.Complete(context.Background(), &llm.Request{})
	if !errors.Is(err, ErrModelFatal) {
		t.Errorf("err = %v, want ErrModelFatal", err)
	}
}

func TestFallbackChainEmpty(t *testing.T) {
	if _, err := NewFallbackChain(nil, nil); err == nil {
		t.Error("expected error for empty chain")
	}
}
