// Package mock provides a scriptable in-memory LLM provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/yumozi/llm-gm/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// Provider is a configurable mock implementation of [llm.Provider]. The
// zero value returns an empty completion with zero usage. Set CompleteFunc
// to script responses; recorded requests are available via Requests.
type Provider struct {
	// Model is the reported model ID. Defaults to "mock-llm".
	Model string

	// CompleteFunc, when non-nil, handles every Complete call.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	mu       sync.Mutex
	requests []llm.CompletionRequest
}

// Requests returns every request passed to Complete, in order.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return &llm.CompletionResponse{}, nil
}

// ModelID implements llm.Provider.
func (p *Provider) ModelID() string {
	if p.Model != "" {
		return p.Model
	}
	return "mock-llm"
}
