package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists embedded fragments in Postgres with pgvector,
// keyed by synopsis fingerprint so restarted processes reuse the rows of an
// unchanged dataset.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Replace(ctx context.Context, synopsisID string, chunks []Chunk, vectors [][]float32) (err error) {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO incident_synopses (id, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (id) DO NOTHING
	`, synopsisID); err != nil {
		return fmt.Errorf("upsert synopsis: %w", err)
	}

	if _, err = tx.Exec(ctx, "DELETE FROM incident_chunks WHERE synopsis_id = $1", synopsisID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for i, chunk := range chunks {
		vec := pgvector.NewVector(vectors[i])
		if _, err = tx.Exec(ctx, `
			INSERT INTO incident_chunks (id, synopsis_id, position, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, chunk.ID, synopsisID, chunk.Position, chunk.Text, vec); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) SimilarChunks(ctx context.Context, synopsisID string, embedding []float32, limit int) ([]Chunk, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            id,
            position,
            content,
            (embedding <-> $2::vector) AS distance
        FROM incident_chunks
        WHERE synopsis_id = $1
        ORDER BY embedding <-> $2::vector
        LIMIT $3
    `, synopsisID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Chunk, 0, limit)
	for rows.Next() {
		var item Chunk
		var distance float64
		if scanErr := rows.Scan(&item.ID, &item.Position, &item.Text, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		item.Score = 1 / (1 + distance)
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

var _ VectorStore = (*PostgresStore)(nil)
