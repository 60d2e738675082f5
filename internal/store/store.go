package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for common error conditions
var (
	ErrNotFound      = errors.New("document not found")
	ErrAdminNotFound = errors.New("admin not found")
	ErrAdminExists   = errors.New("admin already exists")
)

// DocumentStore keeps schemaless documents grouped by collection. Lists are
// returned in insertion order.
type DocumentStore interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create assigns the id and timestamps and returns the stored document.
	Create(ctx context.Context, collection string, doc Document) (Document, error)
	// Update shallow merges patch into the document. Reserved keys are
	// ignored.
	Update(ctx context.Context, collection, id string, patch Document) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string) (int, error)
}

// Admin is a dashboard operator.
type Admin struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfilePatch holds the profile fields an admin may change. Nil fields
// are left alone.
type ProfilePatch struct {
	Name         *string
	Phone        *string
	PasswordHash *string
}

// AdminStore keeps dashboard operators.
type AdminStore interface {
	Get(ctx context.Context, id string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	// Upsert creates the admin or replaces the one with the same email.
	Upsert(ctx context.Context, admin *Admin) (*Admin, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*Admin, error)
}
