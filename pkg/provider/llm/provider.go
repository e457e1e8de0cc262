// Package llm defines the Provider interface for text-generation backends.
//
// The experiment harness issues exactly one generation call per experiment
// run: a fixed system prompt plus a single user prompt carrying the
// assembled world context. Providers wrap a remote model API (OpenAI
// directly, or any backend supported by any-llm-go) and report token usage
// so the harness can account for cost.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package llm

import "context"

// Usage holds token accounting returned by the backend. All counts are in
// the model's native token unit; they feed directly into cost calculation,
// so providers must pass through the backend's numbers rather than
// estimating.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system and user
	// prompts.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens, as reported by the
	// backend.
	TotalTokens int
}

// CompletionRequest carries a single-turn generation request.
type CompletionRequest struct {
	// SystemPrompt is the high-priority instruction injected before the user
	// prompt (the game-master persona).
	SystemPrompt string

	// UserPrompt is the assembled context plus the player action.
	UserPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means use the
	// provider default.
	MaxTokens int
}

// CompletionResponse is the result of a completed generation call.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any text-generation backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled before the
	// completion arrives. Failures are not retried at this layer.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelID returns the model identifier used for generation
	// (e.g., "gpt-4.1"). Used for logging and reports.
	ModelID() string
}
