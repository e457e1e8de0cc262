package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/world"
)

// populatedStore builds a MemStore with a known number of entities per
// category and returns it with the world ID.
func populatedStore(t *testing.T, counts map[world.Category]int) (*store.MemStore, string) {
	t.Helper()
	s := store.NewMemStore()
	w, err := s.CreateWorld(context.Background(), world.World{Name: "Test"})
	if err != nil {
		t.Fatalf("CreateWorld: %v", err)
	}
	for c, n := range counts {
		for i := 0; i < n; i++ {
			err := s.InsertEntity(context.Background(), world.Entity{
				WorldID:     w.ID,
				Category:    c,
				Name:        fmt.Sprintf("%s-%d", c, i),
				Description: "d",
				Embedding:   []float32{1, 0, 0, 0},
			})
			if err != nil {
				t.Fatalf("InsertEntity: %v", err)
			}
		}
	}
	return s, w.ID
}

func TestParseStrategy(t *testing.T) {
	for _, tag := range []string{"full", "random", "similarity"} {
		if _, err := retrieval.ParseStrategy(tag); err != nil {
			t.Errorf("ParseStrategy(%q): unexpected error: %v", tag, err)
		}
	}
	if _, err := retrieval.ParseStrategy("bogus"); err == nil {
		t.Error("ParseStrategy(\"bogus\") succeeded, want error")
	}
}

func TestFullReturnsEveryEntity(t *testing.T) {
	counts := map[world.Category]int{
		world.Items: 12, world.Abilities: 7, world.Locations: 0,
		world.NPCs: 3, world.Organizations: 4, world.Taxonomies: 1, world.Rules: 20,
	}
	s, worldID := populatedStore(t, counts)
	r := retrieval.NewRetriever(s)

	result, err := r.Full(context.Background(), worldID)
	if err != nil {
		t.Fatalf("Full: %v", err)
	}
	for _, c := range world.Categories() {
		if got := len(result.Entities(c)); got != counts[c] {
			t.Errorf("full %s count = %d, want %d", c, got, counts[c])
		}
	}
	if result.Total() != 47 {
		t.Errorf("Total() = %d, want 47", result.Total())
	}
}

func TestRandomSampleSizes(t *testing.T) {
	counts := map[world.Category]int{
		world.Items: 12, world.Abilities: 3, world.Locations: 0,
		world.NPCs: 8, world.Organizations: 6, world.Taxonomies: 2, world.Rules: 25,
	}
	s, worldID := populatedStore(t, counts)
	r := retrieval.NewRetriever(s)

	const topK = 5
	result, err := r.Random(context.Background(), worldID, topK)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}

	for _, c := range world.Categories() {
		want := min(counts[c], topK)
		if c == world.Rules {
			want = min(counts[c], 10)
		}
		if got := len(result.Entities(c)); got != want {
			t.Errorf("random %s count = %d, want %d", c, got, want)
		}
	}
}

func TestRandomCountsStableAcrossRuns(t *testing.T) {
	counts := map[world.Category]int{world.Items: 20, world.Rules: 15}
	s, worldID := populatedStore(t, counts)
	r := retrieval.NewRetriever(s)

	first, err := r.Random(context.Background(), worldID, 5)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	second, err := r.Random(context.Background(), worldID, 5)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}

	// Element sets may differ between runs but counts never do.
	for _, c := range world.Categories() {
		if len(first.Entities(c)) != len(second.Entities(c)) {
			t.Errorf("%s count changed between runs: %d vs %d",
				c, len(first.Entities(c)), len(second.Entities(c)))
		}
	}
}

func TestRandomSeededIsReproducible(t *testing.T) {
	counts := map[world.Category]int{world.Items: 20}
	s, worldID := populatedStore(t, counts)

	draw := func() []string {
		r := retrieval.NewRetriever(s, retrieval.WithSeed(42))
		result, err := r.Random(context.Background(), worldID, 5)
		if err != nil {
			t.Fatalf("Random: %v", err)
		}
		var names []string
		for _, e := range result.Entities(world.Items) {
			names = append(names, e.Name)
		}
		return names
	}

	first, second := draw(), draw()
	if len(first) != len(second) {
		t.Fatalf("seeded draws differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("seeded draw diverged at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSimilarityAppliesCategoryLimits(t *testing.T) {
	counts := map[world.Category]int{
		world.Items: 20, world.Organizations: 20, world.Taxonomies: 20, world.Rules: 20,
	}
	s, worldID := populatedStore(t, counts)
	r := retrieval.NewRetriever(s)

	// Every seeded entity has embedding {1,0,0,0}, so all match the query.
	result, err := r.Similarity(context.Background(), worldID, []float32{1, 0, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}

	wants := map[world.Category]int{
		world.Items:         5,  // k
		world.Organizations: 3,  // min(k, 3)
		world.Taxonomies:    3,  // min(k, 3)
		world.Rules:         10, // max(k, 10)
	}
	for c, want := range wants {
		if got := len(result.Entities(c)); got != want {
			t.Errorf("similarity %s count = %d, want %d", c, got, want)
		}
	}
}

func TestSimilarityHighThresholdYieldsEmptyNotError(t *testing.T) {
	counts := map[world.Category]int{world.Items: 5}
	s, worldID := populatedStore(t, counts)
	r := retrieval.NewRetriever(s)

	// True similarity between {0,1,0,0} and the stored {1,0,0,0} is 0.
	result, err := r.Similarity(context.Background(), worldID, []float32{0, 1, 0, 0}, 5, 0.99)
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}
	if got := len(result.Entities(world.Items)); got != 0 {
		t.Errorf("items count = %d, want 0", got)
	}
	if result[world.Items].Err != nil {
		t.Errorf("items Err = %v, want nil (no match is not a failure)", result[world.Items].Err)
	}
}

// failingStore wraps a MemStore and fails MatchEntities for one category.
type failingStore struct {
	*store.MemStore
	failCategory world.Category
}

var errBroken = errors.New("match function exploded")

func (f *failingStore) MatchEntities(ctx context.Context, worldID string, category world.Category, query []float32, limit int, threshold float64) ([]world.Entity, error) {
	if category == f.failCategory {
		return nil, errBroken
	}
	return f.MemStore.MatchEntities(ctx, worldID, category, query, limit, threshold)
}

func TestSimilarityCategoryFailureDoesNotAbort(t *testing.T) {
	counts := map[world.Category]int{world.Items: 5, world.Rules: 5}
	s, worldID := populatedStore(t, counts)
	fs := &failingStore{MemStore: s, failCategory: world.Items}
	r := retrieval.NewRetriever(fs)

	result, err := r.Similarity(context.Background(), worldID, []float32{1, 0, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}

	if got := len(result.Entities(world.Items)); got != 0 {
		t.Errorf("failed category returned %d entities, want 0", got)
	}
	if !errors.Is(result[world.Items].Err, errBroken) {
		t.Errorf("items Err = %v, want errBroken", result[world.Items].Err)
	}
	if got := len(result.Entities(world.Rules)); got != 5 {
		t.Errorf("rules count = %d, want 5 (other categories resolve normally)", got)
	}
}

func TestSimilarityRequiresEmbedding(t *testing.T) {
	s, worldID := populatedStore(t, nil)
	r := retrieval.NewRetriever(s)

	if _, err := r.Similarity(context.Background(), worldID, nil, 5, 0.65); err == nil {
		t.Error("Similarity with nil embedding succeeded, want error")
	}
}
