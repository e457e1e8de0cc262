package experiment

import (
	"time"

	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/world"
)

// Outcome is the complete record of one experiment run. One Outcome per
// invocation; the aggregation layer (expstats) consumes slices of them.
type Outcome struct {
	// Strategy is the retrieval strategy that produced the context.
	Strategy retrieval.Strategy

	// PlayerMessage is the player action the run was driven by.
	PlayerMessage string

	// Context is the assembled context string injected into the prompt.
	Context string

	// ContextSizeTokens is a rough context size estimate: the whitespace
	// word count of Context. The authoritative size is InputTokens.
	ContextSizeTokens int

	// EntityCounts holds the number of retrieved entities per category.
	EntityCounts map[world.Category]int

	// TotalEntities is the sum of EntityCounts.
	TotalEntities int

	// ResponseText is the generated game-master response.
	ResponseText string

	// Token usage as reported by the generation backend.
	InputTokens  int
	OutputTokens int
	TotalTokens  int

	// Latency is the wall-clock duration of the generation call only; the
	// embedding call (similarity strategy) is excluded.
	Latency time.Duration

	// Parameters the run used, echoed for aggregation and CSV output.
	TopK                int
	SimilarityThreshold float64
	Temperature         float64

	// Model is the generation model identifier.
	Model string
}
