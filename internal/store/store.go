// Package store defines the read/write interfaces over the entity database
// used by the experiment harness, plus an in-memory implementation for tests
// and offline runs. The production implementation lives in store/postgres.
package store

import (
	"context"
	"errors"

	"github.com/yumozi/llm-gm/internal/world"
)

// ErrWorldNotFound is returned by world lookups when no matching world
// exists. The experiment runner treats this as fatal: no default world is
// ever synthesised.
var ErrWorldNotFound = errors.New("world not found")

// WorldStore is the read interface over world metadata.
type WorldStore interface {
	// WorldByID retrieves a world by its identifier.
	// Returns [ErrWorldNotFound] when no such world exists.
	WorldByID(ctx context.Context, id string) (world.World, error)

	// WorldByName retrieves a world by its display name.
	// Returns [ErrWorldNotFound] when no such world exists.
	WorldByName(ctx context.Context, name string) (world.World, error)
}

// EntityStore is the category-keyed read interface over world entities.
//
// Implementations are treated as opaque: the harness never sees the query
// language, only "all records" and "nearest neighbours with a cutoff".
type EntityStore interface {
	// AllEntities returns every entity of the given category belonging to
	// worldID, in store-native order. An empty category is not an error;
	// it yields an empty slice.
	AllEntities(ctx context.Context, worldID string, category world.Category) ([]world.Entity, error)

	// MatchEntities returns up to limit entities of the given category whose
	// embedding similarity to query meets or exceeds threshold, most similar
	// first. Similarity is cosine similarity in [−1, 1].
	MatchEntities(ctx context.Context, worldID string, category world.Category, query []float32, limit int, threshold float64) ([]world.Entity, error)
}

// WriteStore is the seeding-side interface. Only the seeder uses it; the
// experiment core is strictly read-only.
type WriteStore interface {
	// CreateWorld inserts a world record, generating an ID if w.ID is empty,
	// and returns the stored record.
	CreateWorld(ctx context.Context, w world.World) (world.World, error)

	// InsertEntity inserts a single entity record, generating an ID if
	// e.ID is empty.
	InsertEntity(ctx context.Context, e world.Entity) error

	// CountEntities returns the number of stored entities per category for
	// worldID. Categories with no entities are present with a zero count.
	CountEntities(ctx context.Context, worldID string) (map[world.Category]int, error)
}

// Store combines all three store facets. Both the postgres and the
// in-memory implementations satisfy it.
type Store interface {
	WorldStore
	EntityStore
	WriteStore
}
