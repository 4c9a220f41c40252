// Package store persists collections of embeddings in SQLite, using the
// sqlite-vec extension for nearest neighbour search.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DefaultTenant and DefaultDatabase are the only tenant and database a
	// store exposes.
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"

	defaultNResults = 10

	// timeLayout is fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var collectionName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{1,61}[a-zA-Z0-9]$`)

// Store is a SQLite backed embedding store. It is safe for concurrent use;
// all access is serialized over a single connection.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	vecVersion string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and makes
	// SQLite's single writer explicit.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			metadata TEXT NOT NULL DEFAULT '{}',
			dimension INTEGER,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	// vec0 virtual tables use integer rowids, so embeddings maps each
	// (collection, string id) pair to the rowid used in the vec0 table.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			document TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			UNIQUE(collection_id, doc_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embeddings table: %w", err)
	}

	logger.Info("vector store opened",
		"path", path,
		"vec_version", vecVersion,
	)

	return &Store{db: db, logger: logger, vecVersion: vecVersion}, nil
}

// VecVersion returns the loaded sqlite-vec extension version.
func (s *Store) VecVersion() string {
	return s.vecVersion
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateName checks a collection name: 3 to 63 characters of
// [a-zA-Z0-9._-], starting and ending with an alphanumeric.
func ValidateName(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: collection name %q must be 3-63 characters of [a-zA-Z0-9._-] and start and end with an alphanumeric", ErrInvalidArgument, name)
	}
	return nil
}

// CreateCollection creates a collection. When GetOrCreate is set an existing
// collection with the same name is returned instead of ErrCollectionExists.
func (s *Store) CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*Collection, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidArgument)
	}
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}

	col := &Collection{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Metadata:  req.Metadata,
		Tenant:    DefaultTenant,
		Database:  DefaultDatabase,
		CreatedAt: time.Now().UTC(),
	}
	switch space := col.Space(); space {
	case SpaceL2, SpaceCosine:
	default:
		return nil, fmt.Errorf("%w: unsupported %s %q (supported: l2, cosine)", ErrInvalidArgument, SpaceKey, space)
	}

	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getCollection(ctx, tx, req.Name)
	switch {
	case err == nil:
		if req.GetOrCreate {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, req.Name)
	case !errors.Is(err, ErrCollectionNotFound):
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections(id, name, metadata, created_at) VALUES (?, ?, ?, ?)`,
		col.ID, col.Name, meta, col.CreatedAt.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("inserting collection %s: %w", col.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("created collection", "name", col.Name, "id", col.ID)
	return col, nil
}

// GetCollection resolves a collection by name or id.
func (s *Store) GetCollection(ctx context.Context, nameOrID string) (*Collection, error) {
	return getCollection(ctx, s.db, nameOrID)
}

// ListCollections returns all collections in creation order.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, metadata, dimension, created_at FROM collections ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	cols := []*Collection{}
	for rows.Next() {
		col, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return cols, nil
}

// DeleteCollection drops a collection and every embedding in it.
func (s *Store) DeleteCollection(ctx context.Context, nameOrID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	col, err := getCollection(ctx, tx, nameOrID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, vecTable(col.ID))); err != nil {
		return fmt.Errorf("dropping vec0 table for %s: %w", col.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE collection_id = ?`, col.ID); err != nil {
		return fmt.Errorf("deleting embeddings for %s: %w", col.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, col.ID); err != nil {
		return fmt.Errorf("deleting collection %s: %w", col.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted collection", "name", col.Name, "id", col.ID)
	return nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collectionID string) (int, error) {
	col, err := getCollection(ctx, s.db, collectionID)
	if err != nil {
		return 0, err
	}
	return count(ctx, s.db, col.ID)
}

func count(ctx context.Context, q queryer, collectionID string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE collection_id = ?`, collectionID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

func getCollection(ctx context.Context, q queryer, nameOrID string) (*Collection, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, metadata, dimension, created_at FROM collections WHERE id = ? OR name = ?`,
		nameOrID, nameOrID,
	)
	col, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, nameOrID)
	}
	return col, err
}

func scanCollection(row interface{ Scan(dest ...any) error }) (*Collection, error) {
	var (
		col       Collection
		meta      string
		dimension sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&col.ID, &col.Name, &meta, &dimension, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	md, err := unmarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	if len(md) > 0 {
		col.Metadata = md
	}
	if dimension.Valid {
		d := int(dimension.Int64)
		col.Dimension = &d
	}
	col.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	col.Tenant = DefaultTenant
	col.Database = DefaultDatabase
	return &col, nil
}

// vecTable names the vec0 table backing a collection. Collection ids are
// generated UUIDs so the result is always a safe identifier.
func vecTable(collectionID string) string {
	return "vec_" + strings.ReplaceAll(collectionID, "-", "")
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: encoding metadata: %v", ErrInvalidArgument, err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
