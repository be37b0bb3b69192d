package database

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nikkelr/chat-with-PDF/internal/index"
	"github.com/nikkelr/chat-with-PDF/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

var (
	_ index.Backend = (*VectorStore)(nil)
	_ index.Index   = (*VectorIndex)(nil)
)

// VectorStore keeps session indexes in Postgres using the pgvector extension
type VectorStore struct {
	Pool *pgxpool.Pool
}

// NewVectorStore creates a new database connection
func NewVectorStore(ctx context.Context, connStr string) (*VectorStore, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	// The vector type must exist before pooled connections can register it
	conn, err := pgx.ConnectConfig(ctx, config.ConnConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	_, err = conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	_ = conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &VectorStore{Pool: pool}, nil
}

// Initialize sets up the table and drops chunks left behind by an earlier
// process. Sessions never outlive the process that created them.
func (s *VectorStore) Initialize(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_chunks (
			session_id   TEXT    NOT NULL,
			position     INTEGER NOT NULL,
			content      TEXT    NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset   INTEGER NOT NULL,
			embedding    vector  NOT NULL,
			PRIMARY KEY (session_id, position)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_chunks table: %w", err)
	}

	tag, err := s.Pool.Exec(ctx, `DELETE FROM session_chunks`)
	if err != nil {
		return fmt.Errorf("failed to purge stale session chunks: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("Removed %d stale session chunks", n)
	}
	return nil
}

// Name returns the backend name used in configuration.
func (s *VectorStore) Name() string { return "postgres" }

// Create stores every chunk of a session in one transaction
func (s *VectorStore) Create(ctx context.Context, sessionID string, chunks []models.TextChunk, vectors [][]float64) (index.Index, error) {
	if len(chunks) != len(vectors) {
		return nil, models.NewError(models.KindEmbedding,
			"%d chunks but %d vectors", len(chunks), len(vectors))
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(`
			INSERT INTO session_chunks (session_id, position, content, start_offset, end_offset, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, sessionID, chunk.Position, chunk.Content, chunk.Start, chunk.End, toVector(vectors[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to store session chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session chunks: %w", err)
	}

	return &VectorIndex{store: s, sessionID: sessionID, size: len(chunks)}, nil
}

// Close closes the database connection
func (s *VectorStore) Close() {
	s.Pool.Close()
}

// VectorIndex is one session's rows in session_chunks
type VectorIndex struct {
	store     *VectorStore
	sessionID string
	size      int

	mu     sync.RWMutex
	closed bool
}

// Search finds the chunks closest to the query embedding
func (v *VectorIndex) Search(ctx context.Context, query []float64, k int) ([]models.ScoredChunk, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, models.NewError(models.KindNotFound, "index for session %s is closed", v.sessionID)
	}
	if k <= 0 {
		k = index.DefaultK
	}

	rows, err := v.store.Pool.Query(ctx, `
		SELECT position, content, start_offset, end_offset, 1 - (embedding <=> $2) AS score
		FROM session_chunks
		WHERE session_id = $1
		ORDER BY embedding <=> $2, position
		LIMIT $3
	`, v.sessionID, toVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	return processRows(rows)
}

func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return 0
	}
	return v.size
}

// Close deletes the session's rows
func (v *VectorIndex) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	if _, err := v.store.Pool.Exec(ctx, `DELETE FROM session_chunks WHERE session_id = $1`, v.sessionID); err != nil {
		return fmt.Errorf("failed to delete chunks for session %s: %w", v.sessionID, err)
	}
	return nil
}

func processRows(rows pgx.Rows) ([]models.ScoredChunk, error) {
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var r models.ScoredChunk
		if err := rows.Scan(
			&r.Chunk.Position,
			&r.Chunk.Content,
			&r.Chunk.Start,
			&r.Chunk.End,
			&r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

func toVector(v []float64) pgvector.Vector {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return pgvector.NewVector(f)
}
