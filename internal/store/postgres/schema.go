// Package postgres provides the PostgreSQL-backed implementation of
// [store.Store]. Entities live in a single table keyed by world and
// category, with a pgvector HNSW index for approximate nearest-neighbour
// search over their embeddings.
//
// The pgvector extension must be available in the target database;
// [Migrate] installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlWorlds = `
CREATE TABLE IF NOT EXISTS worlds (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    tone        TEXT         NOT NULL DEFAULT '',
    setting     TEXT         NOT NULL DEFAULT '',
    description TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_worlds_name ON worlds (name);
`

// ddlEntities is parameterised by embedding dimension; see [Migrate].
const ddlEntitiesFmt = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT         PRIMARY KEY,
    world_id    TEXT         NOT NULL REFERENCES worlds (id) ON DELETE CASCADE,
    category    TEXT         NOT NULL,
    name        TEXT         NOT NULL,
    description TEXT         NOT NULL DEFAULT '',
    embedding   vector(%d),
    is_priority BOOLEAN      NOT NULL DEFAULT false,
    seq         BIGSERIAL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entities_world_category
    ON entities (world_id, category, seq);

CREATE INDEX IF NOT EXISTS idx_entities_embedding
    ON entities USING hnsw (embedding vector_cosine_ops);
`

// Migrate ensures the pgvector extension, tables, and indexes exist.
// embeddingDimensions must match the configured embedding model's output
// dimension (e.g., 1536 for text-embedding-ada-002). Changing it after the
// first migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("postgres: embedding dimensions must be positive, got %d", embeddingDimensions)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		ddlWorlds,
		fmt.Sprintf(ddlEntitiesFmt, embeddingDimensions),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
