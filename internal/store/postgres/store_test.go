package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/store/postgres"
	"github.com/yumozi/llm-gm/internal/world"
)

const testEmbeddingDim = 4

// newTestStore creates a fresh [postgres.Store] against the test database,
// or skips the test if LLMGM_TEST_POSTGRES_DSN is not set.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("LLMGM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LLMGM_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}

	s, err := postgres.NewStore(context.Background(), dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestWorldRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w, err := s.CreateWorld(ctx, world.World{
		Name: "pgtest-world", Tone: "grim", Setting: "frontier", Description: "A harsh land",
	})
	if err != nil {
		t.Fatalf("CreateWorld: %v", err)
	}
	if w.ID == "" {
		t.Fatal("CreateWorld returned empty ID")
	}

	got, err := s.WorldByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("WorldByID: %v", err)
	}
	if got != w {
		t.Errorf("WorldByID = %+v, want %+v", got, w)
	}

	_, err = s.WorldByID(ctx, "missing-id")
	if !errors.Is(err, store.ErrWorldNotFound) {
		t.Errorf("WorldByID(missing) error = %v, want ErrWorldNotFound", err)
	}
}

func TestEntityInsertAndRetrieve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w, err := s.CreateWorld(ctx, world.World{Name: "pgtest-entities"})
	if err != nil {
		t.Fatalf("CreateWorld: %v", err)
	}

	entities := []world.Entity{
		{WorldID: w.ID, Category: world.Items, Name: "Sword", Description: "A sharp blade", Embedding: []float32{1, 0, 0, 0}},
		{WorldID: w.ID, Category: world.Items, Name: "Torch", Description: "Light source", Embedding: []float32{0, 1, 0, 0}},
		{WorldID: w.ID, Category: world.Rules, Name: "Initiative", Description: "Roll first", Priority: true},
	}
	for _, e := range entities {
		if err := s.InsertEntity(ctx, e); err != nil {
			t.Fatalf("InsertEntity(%s): %v", e.Name, err)
		}
	}

	items, err := s.AllEntities(ctx, w.ID, world.Items)
	if err != nil {
		t.Fatalf("AllEntities(items): %v", err)
	}
	if len(items) != 2 || items[0].Name != "Sword" || items[1].Name != "Torch" {
		t.Errorf("AllEntities(items) = %v, want [Sword Torch] in insertion order", items)
	}

	rules, err := s.AllEntities(ctx, w.ID, world.Rules)
	if err != nil {
		t.Fatalf("AllEntities(rules): %v", err)
	}
	if len(rules) != 1 || !rules[0].Priority {
		t.Errorf("AllEntities(rules) = %v, want one priority rule", rules)
	}

	matches, err := s.MatchEntities(ctx, w.ID, world.Items, []float32{1, 0, 0, 0}, 5, 0.9)
	if err != nil {
		t.Fatalf("MatchEntities: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Sword" {
		t.Errorf("MatchEntities = %v, want [Sword]", matches)
	}

	counts, err := s.CountEntities(ctx, w.ID)
	if err != nil {
		t.Fatalf("CountEntities: %v", err)
	}
	if counts[world.Items] != 2 || counts[world.Rules] != 1 {
		t.Errorf("CountEntities = %v, want items:2 rules:1", counts)
	}
}
