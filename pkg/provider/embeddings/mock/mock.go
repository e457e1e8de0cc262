// Package mock provides a deterministic in-memory embeddings provider for
// tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/yumozi/llm-gm/pkg/provider/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// Provider is a configurable mock implementation of [embeddings.Provider].
// The zero value embeds every text as a zero vector of dimension Dim (or 4
// if Dim is 0). Set EmbedFunc to control outputs per input, or pre-register
// fixed vectors with Register.
type Provider struct {
	// Dim is the reported vector dimension. Defaults to 4.
	Dim int

	// Model is the reported model ID. Defaults to "mock-embedder".
	Model string

	// EmbedFunc, when non-nil, handles every Embed call.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	mu      sync.Mutex
	vectors map[string][]float32
	calls   []string
}

// Register stores a fixed vector returned whenever text is embedded.
func (p *Provider) Register(text string, vec []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vectors == nil {
		p.vectors = make(map[string][]float32)
	}
	p.vectors[text] = vec
}

// Calls returns every text passed to Embed, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	registered, ok := p.vectors[text]
	p.mu.Unlock()

	if p.EmbedFunc != nil {
		return p.EmbedFunc(ctx, text)
	}
	if ok {
		return registered, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("mock embeddings: %w", err)
	}
	return make([]float32, p.Dimensions()), nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.Dim > 0 {
		return p.Dim
	}
	return 4
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	if p.Model != "" {
		return p.Model
	}
	return "mock-embedder"
}
