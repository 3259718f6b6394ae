// Package sqlite provides a SQLite-backed record store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/pkg/record"
)

// Store implements record.Store on SQLite. The UNIQUE(namespace,
// content_hash) index makes INSERT OR IGNORE the atomic insert-if-absent
// primitive: two racing writers never produce a duplicate row.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS embedding_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			media_type TEXT NOT NULL DEFAULT '',
			payload BLOB NOT NULL,
			embedding BLOB NOT NULL,
			dim INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(namespace, content_hash)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	logger.Info("sqlite record store initialized",
		zap.String("db_path", dbPath),
	)

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// InsertIfAbsent stores rec unless its (namespace, hash) already exists.
func (s *Store) InsertIfAbsent(ctx context.Context, rec *record.Record) (bool, error) {
	if rec == nil {
		return false, errors.New("cannot store nil record")
	}

	embBlob, err := record.EncodeEmbedding(rec.Embedding)
	if err != nil {
		return false, fmt.Errorf("encoding embedding for %s: %w", rec.ContentHash, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO embedding_records
			(namespace, content_hash, media_type, payload, embedding, dim, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Namespace, rec.ContentHash, rec.MediaType, rec.Payload, embBlob, rec.Dim, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.ContentHash, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result for %s: %w", rec.ContentHash, err)
	}

	inserted := affected > 0
	s.logger.Debug("insert-if-absent",
		zap.String("namespace", rec.Namespace),
		zap.String("hash", rec.ContentHash),
		zap.Bool("inserted", inserted),
	)

	return inserted, nil
}

// Has reports whether a record exists.
func (s *Store) Has(ctx context.Context, namespace, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM embedding_records WHERE namespace = ? AND content_hash = ?`,
		namespace, hash,
	).Scan(&one)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("checking record %s: %w", hash, err)
	}
}

// Get retrieves a record by its identity.
func (s *Store) Get(ctx context.Context, namespace, hash string) (*record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT namespace, content_hash, media_type, payload, embedding, dim, created_at
		FROM embedding_records
		WHERE namespace = ? AND content_hash = ?
	`, namespace, hash)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.NotFoundError{Namespace: namespace, Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", hash, err)
	}

	return rec, nil
}

// List returns the namespace's records ordered by insertion (id).
func (s *Store) List(ctx context.Context, namespace string) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, content_hash, media_type, payload, embedding, dim, created_at
		FROM embedding_records
		WHERE namespace = ?
		ORDER BY id
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing namespace %q: %w", namespace, err)
	}
	defer rows.Close()

	var recs []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return recs, nil
}

// Delete removes a record. Missing records are a no-op.
func (s *Store) Delete(ctx context.Context, namespace, hash string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM embedding_records WHERE namespace = ? AND content_hash = ?`,
		namespace, hash,
	); err != nil {
		return fmt.Errorf("deleting record %s: %w", hash, err)
	}

	return nil
}

// DeleteNamespace removes every record in the namespace.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM embedding_records WHERE namespace = ?`, namespace,
	); err != nil {
		return fmt.Errorf("deleting namespace %q: %w", namespace, err)
	}

	return nil
}

// Namespaces returns the distinct namespaces with at least one record.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT namespace FROM embedding_records ORDER BY namespace`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		names = append(names, ns)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating namespaces: %w", err)
	}

	return names, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*record.Record, error) {
	var (
		rec     record.Record
		embBlob []byte
	)

	if err := sc.Scan(
		&rec.Namespace, &rec.ContentHash, &rec.MediaType,
		&rec.Payload, &embBlob, &rec.Dim, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	embedding, err := record.DecodeEmbedding(embBlob)
	if err != nil {
		return nil, fmt.Errorf("decoding embedding for %s: %w", rec.ContentHash, err)
	}
	rec.Embedding = embedding

	return &rec, nil
}

var _ record.Store = (*Store)(nil)
