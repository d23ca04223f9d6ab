package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// PgQuerier is the subset of pgx pool behavior PgIndex needs.
// *pgxpool.Pool satisfies it.
type PgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgIndex is the pgvector-backed Index. The doc_chunks table carries a
// BIGSERIAL seq column; queries order by cosine distance then seq, so
// equal-distance chunks come back in insertion order.
//
// Safe for concurrent use.
type PgIndex struct {
	db     PgQuerier
	logger *slog.Logger
}

// NewPgIndex creates a pgvector index over db. A nil logger falls back
// to slog.Default.
func NewPgIndex(db PgQuerier, logger *slog.Logger) *PgIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgIndex{db: db, logger: logger}
}

// Insert adds a chunk. Append-only: inserting the same content twice
// stores it twice.
func (p *PgIndex) Insert(ctx context.Context, chunk Chunk, embedding []float32) error {
	if len(embedding) != VectorDimension {
		return fmt.Errorf("chunk %q: embedding dimension %d, want %d", chunk.ID, len(embedding), VectorDimension)
	}

	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", chunk.ID, err)
	}

	vec := pgvector.NewVector(embedding)
	_, err = p.db.Exec(ctx,
		`INSERT INTO doc_chunks (id, source, ordinal, content, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		chunk.ID, chunk.Source, chunk.Ordinal, chunk.Content, metadataJSON, vec)
	if err != nil {
		return fmt.Errorf("inserting chunk %q: %w", chunk.ID, err)
	}

	p.logger.Debug("inserted chunk", "id", chunk.ID, "source", chunk.Source, "bytes", len(chunk.Content))
	return nil
}

// Query returns the k nearest chunks by cosine distance, ties broken by
// the seq column. A 10 second timeout bounds the vector search.
func (p *PgIndex) Query(ctx context.Context, embedding []float32, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	rows, err := p.db.Query(queryCtx,
		`SELECT id, source, ordinal, seq, content, metadata, created_at
		 FROM doc_chunks
		 ORDER BY embedding <=> $1, seq
		 LIMIT $2`,
		vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var (
			c            Chunk
			metadataJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.Source, &c.Ordinal, &c.Seq, &c.Content, &metadataJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %q: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return out, nil
}

// Count returns the number of indexed chunks.
func (p *PgIndex) Count(ctx context.Context) (int, error) {
	var count int64
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM doc_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(count), nil
}

// Clear removes all chunks and restarts the insertion sequence.
func (p *PgIndex) Clear(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, `TRUNCATE doc_chunks RESTART IDENTITY`); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	return nil
}
