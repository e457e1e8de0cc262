package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/world"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed entity store. It holds a single
// [pgxpool.Pool]; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate].
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	// Register pgvector types so vector columns scan into pgvector.Vector.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WorldByID implements [store.WorldStore].
func (s *Store) WorldByID(ctx context.Context, id string) (world.World, error) {
	const q = `
		SELECT id, name, tone, setting, description
		FROM   worlds
		WHERE  id = $1`
	return s.scanWorld(ctx, q, id)
}

// WorldByName implements [store.WorldStore].
func (s *Store) WorldByName(ctx context.Context, name string) (world.World, error) {
	const q = `
		SELECT id, name, tone, setting, description
		FROM   worlds
		WHERE  name = $1
		ORDER  BY created_at
		LIMIT  1`
	return s.scanWorld(ctx, q, name)
}

func (s *Store) scanWorld(ctx context.Context, query string, arg any) (world.World, error) {
	var w world.World
	err := s.pool.QueryRow(ctx, query, arg).Scan(&w.ID, &w.Name, &w.Tone, &w.Setting, &w.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return world.World{}, fmt.Errorf("postgres: world %v: %w", arg, store.ErrWorldNotFound)
	}
	if err != nil {
		return world.World{}, fmt.Errorf("postgres: lookup world: %w", err)
	}
	return w, nil
}

// AllEntities implements [store.EntityStore]. Results come back in
// insertion (seq) order, the store-native order for this schema.
func (s *Store) AllEntities(ctx context.Context, worldID string, category world.Category) ([]world.Entity, error) {
	const q = `
		SELECT id, world_id, category, name, description, is_priority
		FROM   entities
		WHERE  world_id = $1 AND category = $2
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q, worldID, string(category))
	if err != nil {
		return nil, fmt.Errorf("postgres: all %s: %w", category, err)
	}
	entities, err := collectEntities(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: all %s: %w", category, err)
	}
	return entities, nil
}

// MatchEntities implements [store.EntityStore]. The cosine distance
// operator <=> returns 1 − cosine similarity, so the threshold is applied
// as distance <= 1 − threshold and ordering by distance yields most similar
// first.
func (s *Store) MatchEntities(ctx context.Context, worldID string, category world.Category, query []float32, limit int, threshold float64) ([]world.Entity, error) {
	const q = `
		SELECT id, world_id, category, name, description, is_priority
		FROM   entities
		WHERE  world_id = $1
		  AND  category = $2
		  AND  embedding IS NOT NULL
		  AND  embedding <=> $3 <= $4
		ORDER  BY embedding <=> $3
		LIMIT  $5`

	rows, err := s.pool.Query(ctx, q,
		worldID, string(category), pgvector.NewVector(query), 1-threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: match %s: %w", category, err)
	}
	entities, err := collectEntities(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: match %s: %w", category, err)
	}
	return entities, nil
}

// CreateWorld implements [store.WriteStore].
func (s *Store) CreateWorld(ctx context.Context, w world.World) (world.World, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	const q = `
		INSERT INTO worlds (id, name, tone, setting, description)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, q, w.ID, w.Name, w.Tone, w.Setting, w.Description); err != nil {
		return world.World{}, fmt.Errorf("postgres: create world %q: %w", w.Name, err)
	}
	return w, nil
}

// InsertEntity implements [store.WriteStore]. A nil embedding is stored as
// SQL NULL and excluded from similarity search.
func (s *Store) InsertEntity(ctx context.Context, e world.Entity) error {
	if !e.Category.IsValid() {
		return fmt.Errorf("postgres: insert entity %q: unknown category %q", e.Name, e.Category)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var embedding any
	if len(e.Embedding) > 0 {
		embedding = pgvector.NewVector(e.Embedding)
	}

	const q = `
		INSERT INTO entities (id, world_id, category, name, description, embedding, is_priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.WorldID, string(e.Category), e.Name, e.Description, embedding, e.Priority)
	if err != nil {
		return fmt.Errorf("postgres: insert %s %q: %w", e.Category, e.Name, err)
	}
	return nil
}

// CountEntities implements [store.WriteStore].
func (s *Store) CountEntities(ctx context.Context, worldID string) (map[world.Category]int, error) {
	const q = `
		SELECT category, count(*)
		FROM   entities
		WHERE  world_id = $1
		GROUP  BY category`

	rows, err := s.pool.Query(ctx, q, worldID)
	if err != nil {
		return nil, fmt.Errorf("postgres: count entities: %w", err)
	}
	defer rows.Close()

	counts := make(map[world.Category]int, len(world.Categories()))
	for _, c := range world.Categories() {
		counts[c] = 0
	}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("postgres: count entities: %w", err)
		}
		c, err := world.ParseCategory(name)
		if err != nil {
			// Rows from unknown categories are ignored rather than failing
			// the whole count.
			continue
		}
		counts[c] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: count entities: %w", err)
	}
	return counts, nil
}

// collectEntities scans entity rows into a slice. An empty result is an
// empty slice, never nil.
func collectEntities(rows pgx.Rows) ([]world.Entity, error) {
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (world.Entity, error) {
		var (
			e        world.Entity
			category string
		)
		if err := row.Scan(&e.ID, &e.WorldID, &category, &e.Name, &e.Description, &e.Priority); err != nil {
			return world.Entity{}, err
		}
		e.Category = world.Category(category)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []world.Entity{}
	}
	return entities, nil
}
