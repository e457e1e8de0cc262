package store

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/yumozi/llm-gm/internal/world"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It keeps
// insertion order per category so that AllEntities returns a stable
// "store-native" order, and performs exact (non-approximate) cosine
// similarity search for MatchEntities.
type MemStore struct {
	mu       sync.RWMutex
	worlds   map[string]world.World
	entities map[string]map[world.Category][]world.Entity // worldID → category → entities
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		worlds:   make(map[string]world.World),
		entities: make(map[string]map[world.Category][]world.Entity),
	}
}

// WorldByID implements [WorldStore.WorldByID].
func (s *MemStore) WorldByID(ctx context.Context, id string) (world.World, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.worlds[id]
	if !ok {
		return world.World{}, fmt.Errorf("memstore: world %q: %w", id, ErrWorldNotFound)
	}
	return w, nil
}

// WorldByName implements [WorldStore.WorldByName].
func (s *MemStore) WorldByName(ctx context.Context, name string) (world.World, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.worlds {
		if w.Name == name {
			return w, nil
		}
	}
	return world.World{}, fmt.Errorf("memstore: world named %q: %w", name, ErrWorldNotFound)
}

// AllEntities implements [EntityStore.AllEntities].
func (s *MemStore) AllEntities(ctx context.Context, worldID string, category world.Category) ([]world.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := s.entities[worldID]
	out := make([]world.Entity, len(byCategory[category]))
	copy(out, byCategory[category])
	return out, nil
}

// MatchEntities implements [EntityStore.MatchEntities] with exact cosine
// similarity. Entities without an embedding never match.
func (s *MemStore) MatchEntities(ctx context.Context, worldID string, category world.Category, query []float32, limit int, threshold float64) ([]world.Entity, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("memstore: match %s: empty query embedding", category)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entity     world.Entity
		similarity float64
	}

	var matches []scored
	for _, e := range s.entities[worldID][category] {
		if len(e.Embedding) == 0 {
			continue
		}
		sim, err := cosineSimilarity(query, e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("memstore: match %s: %w", category, err)
		}
		if sim >= threshold {
			matches = append(matches, scored{entity: e, similarity: sim})
		}
	}

	// Most similar first; stable for equal scores (insertion order).
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].similarity > matches[j-1].similarity; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]world.Entity, len(matches))
	for i, m := range matches {
		out[i] = m.entity
	}
	return out, nil
}

// CreateWorld implements [WriteStore.CreateWorld].
func (s *MemStore) CreateWorld(ctx context.Context, w world.World) (world.World, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.worlds[w.ID] = w
	return w, nil
}

// InsertEntity implements [WriteStore.InsertEntity].
func (s *MemStore) InsertEntity(ctx context.Context, e world.Entity) error {
	if !e.Category.IsValid() {
		return fmt.Errorf("memstore: insert entity %q: unknown category %q", e.Name, e.Category)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory, ok := s.entities[e.WorldID]
	if !ok {
		byCategory = make(map[world.Category][]world.Entity)
		s.entities[e.WorldID] = byCategory
	}
	byCategory[e.Category] = append(byCategory[e.Category], e)
	return nil
}

// CountEntities implements [WriteStore.CountEntities].
func (s *MemStore) CountEntities(ctx context.Context, worldID string) (map[world.Category]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[world.Category]int, len(world.Categories()))
	for _, c := range world.Categories() {
		counts[c] = len(s.entities[worldID][c])
	}
	return counts, nil
}

// cosineSimilarity computes the cosine similarity between two vectors of
// equal dimension.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
