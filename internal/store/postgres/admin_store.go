package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfeidau/admindash/internal/store"
)

var _ store.AdminStore = (*AdminStore)(nil)

// AdminStore implements store.AdminStore.
type AdminStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewAdminStore(pool *pgxpool.Pool, cfg *Config) *AdminStore {
	cfg.ApplyDefaults()
	return &AdminStore{pool: pool, timeout: cfg.QueryTimeout}
}

const adminColumns = `id::text, email, name, phone, role, password_hash, created_at, updated_at`

func (s *AdminStore) Get(ctx context.Context, id string) (*store.Admin, error) {
	if !validID(id) {
		return nil, store.ErrAdminNotFound
	}
	return s.queryOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1::uuid`, id)
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*store.Admin, error) {
	return s.queryOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, store.NormalizeEmail(email))
}

func (s *AdminStore) Upsert(ctx context.Context, admin *store.Admin) (*store.Admin, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	role := admin.Role
	if role == "" {
		role = "admin"
	}

	return s.queryOne(ctx, `
		INSERT INTO admins (id, email, name, phone, role, password_hash)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			password_hash = EXCLUDED.password_hash,
			updated_at = now()
		RETURNING `+adminColumns,
		id.String(), store.NormalizeEmail(admin.Email), admin.Name, admin.Phone, role, admin.PasswordHash)
}

func (s *AdminStore) UpdateProfile(ctx context.Context, id string, patch store.ProfilePatch) (*store.Admin, error) {
	if !validID(id) {
		return nil, store.ErrAdminNotFound
	}

	return s.queryOne(ctx, `
		UPDATE admins SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			password_hash = COALESCE($4, password_hash),
			updated_at = now()
		WHERE id = $1::uuid
		RETURNING `+adminColumns,
		id, patch.Name, patch.Phone, patch.PasswordHash)
}

func (s *AdminStore) queryOne(ctx context.Context, sql string, args ...any) (*store.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrAdminNotFound)
	}

	admin, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (*store.Admin, error) {
		var a store.Admin
		err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.Role, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
		return &a, err
	})
	if err != nil {
		return nil, mapPostgresError(err, store.ErrAdminNotFound)
	}
	return admin, nil
}
