package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfeidau/admindash/internal/store"
)

var _ store.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements store.DocumentStore on a JSONB table. The id
// and timestamps live in columns and are stamped onto the body on read.
type DocumentStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewDocumentStore(pool *pgxpool.Pool, cfg *Config) *DocumentStore {
	cfg.ApplyDefaults()
	return &DocumentStore{pool: pool, timeout: cfg.QueryTimeout}
}

const documentColumns = `id::text, body, created_at, updated_at`

func (s *DocumentStore) List(ctx context.Context, collection string) ([]store.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id
	`, collection)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrNotFound)
	}

	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", mapPostgresError(err, store.ErrNotFound))
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE collection = $1 AND id = $2::uuid
	`, collection, id)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrNotFound)
	}

	doc, err := pgx.CollectExactlyOneRow(rows, scanDocument)
	return doc, mapPostgresError(err, store.ErrNotFound)
}

func (s *DocumentStore) Create(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	body, err := json.Marshal(doc.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2::uuid, $3::jsonb)
		RETURNING `+documentColumns, collection, id.String(), body)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrNotFound)
	}

	created, err := pgx.CollectExactlyOneRow(rows, scanDocument)
	return created, mapPostgresError(err, store.ErrNotFound)
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, patch store.Document) (store.Document, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}

	body, err := json.Marshal(patch.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		UPDATE documents
		SET body = body || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2::uuid
		RETURNING `+documentColumns, collection, id, body)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrNotFound)
	}

	updated, err := pgx.CollectExactlyOneRow(rows, scanDocument)
	return updated, mapPostgresError(err, store.ErrNotFound)
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2::uuid`, collection, id)
	if err != nil {
		return mapPostgresError(err, store.ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DocumentStore) Count(ctx context.Context, collection string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, mapPostgresError(err, store.ErrNotFound)
	}
	return n, nil
}

func scanDocument(row pgx.CollectableRow) (store.Document, error) {
	var (
		id                   string
		body                 []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &body, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	doc := store.Document{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return doc.Stamp(id, createdAt, updatedAt), nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
