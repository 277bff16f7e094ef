package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureIncidentSchema creates the synopsis/chunk tables used by the
// Postgres vector store.
func EnsureIncidentSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS incident_synopses (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS incident_chunks (
			id UUID PRIMARY KEY,
			synopsis_id TEXT NOT NULL REFERENCES incident_synopses(id) ON DELETE CASCADE,
			position INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(synopsis_id, position)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_incident_chunks_synopsis ON incident_chunks(synopsis_id)",
		"CREATE INDEX IF NOT EXISTS idx_incident_chunks_embedding ON incident_chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
