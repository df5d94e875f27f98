// Package postgres stores account documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omrishi123/tractortrack/internal/core"
)

const (
	loadDocument = `SELECT body FROM documents WHERE user_id = $1`

	upsertDocument = `
INSERT INTO documents (user_id, body, hash, version, updated_at)
VALUES ($1, $2, $3, 1, $4)
ON CONFLICT (user_id) DO UPDATE SET
    body = excluded.body,
    hash = excluded.hash,
    version = documents.version + 1,
    updated_at = excluded.updated_at
WHERE documents.hash <> excluded.hash`

	documentInfo = `SELECT hash, version, updated_at FROM documents WHERE user_id = $1`
)

// dbtx is the part of a pgx pool the repository uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// DocumentInfo describes the stored revision of a document.
type DocumentInfo struct {
	Hash      string
	Version   int64
	UpdatedAt time.Time
}

// NewRepository connects to databaseURL and migrates the schema.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{db: pool, pool: pool}, nil
}

func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Load implements store.DocumentStore.
func (r *Repository) Load(ctx context.Context, userID string) (core.AppData, bool, error) {
	var body []byte
	err := r.db.QueryRow(ctx, loadDocument, userID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("load document: %w", err)
	}

	var doc core.AppData
	if err := json.Unmarshal(body, &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc.Normalize(), true, nil
}

// Save implements store.DocumentStore. An unchanged document keeps its
// version.
func (r *Repository) Save(ctx context.Context, userID string, doc core.AppData) error {
	doc = doc.Normalize()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	hash, err := core.Fingerprint(doc)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, upsertDocument, userID, body, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		slog.DebugContext(ctx, "Document unchanged, row kept", "user_id", userID)
		return nil
	}
	slog.DebugContext(ctx, "Document saved to Postgres", "user_id", userID, "bytes", len(body))
	return nil
}

// Info returns revision metadata for a stored document.
func (r *Repository) Info(ctx context.Context, userID string) (DocumentInfo, error) {
	var info DocumentInfo
	err := r.db.QueryRow(ctx, documentInfo, userID).Scan(&info.Hash, &info.Version, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentInfo{}, core.NotFound("document", userID)
	}
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("document info: %w", err)
	}
	return info, nil
}

// Ping checks the pool can reach the database. Repositories built on a
// bare dbtx have nothing to ping.
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}
