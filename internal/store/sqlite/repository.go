// Package sqlite stores account documents as JSON rows in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/omrishi123/tractortrack/internal/core"

	_ "modernc.org/sqlite"
)

const (
	loadDocument = `SELECT body FROM documents WHERE user_id = ?`

	upsertDocument = `
INSERT INTO documents (user_id, body, hash, version, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT(user_id) DO UPDATE SET
    body = excluded.body,
    hash = excluded.hash,
    version = documents.version + 1,
    updated_at = excluded.updated_at
WHERE documents.hash <> excluded.hash`

	documentInfo = `SELECT hash, version, updated_at FROM documents WHERE user_id = ?`
)

type Repository struct {
	db *sql.DB
}

// DocumentInfo describes the stored revision of a document.
type DocumentInfo struct {
	Hash      string
	Version   int64
	UpdatedAt time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single connection serialises writers on the file
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements store.DocumentStore.
func (r *Repository) Load(ctx context.Context, userID string) (core.AppData, bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, loadDocument, userID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("load document: %w", err)
	}

	var doc core.AppData
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc.Normalize(), true, nil
}

// Save implements store.DocumentStore. Writing a document identical to the
// stored one leaves the row and its version untouched.
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

	res, err := r.db.ExecContext(ctx, upsertDocument, userID, string(body), hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Document unchanged, row kept", "user_id", userID)
		return nil
	}

	slog.DebugContext(ctx, "Document saved to SQLite", "user_id", userID, "bytes", len(body))
	return nil
}

// Info returns revision metadata for a stored document.
func (r *Repository) Info(ctx context.Context, userID string) (DocumentInfo, error) {
	var info DocumentInfo
	err := r.db.QueryRowContext(ctx, documentInfo, userID).Scan(&info.Hash, &info.Version, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentInfo{}, core.NotFound("document", userID)
	}
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("document info: %w", err)
	}
	return info, nil
}

// Ping checks that the database file is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
