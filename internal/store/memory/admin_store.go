package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/admindash/internal/store"
)

var _ store.AdminStore = (*AdminStore)(nil)

// AdminStore implements store.AdminStore using in-memory storage.
type AdminStore struct {
	mu sync.RWMutex

	admins  map[string]*store.Admin // id -> Admin
	byEmail map[string]string       // normalized email -> id
}

func NewAdminStore() *AdminStore {
	return &AdminStore{
		admins:  make(map[string]*store.Admin),
		byEmail: make(map[string]string),
	}
}

func (s *AdminStore) Get(ctx context.Context, id string) (*store.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	clone := *admin
	return &clone, nil
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*store.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[store.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	clone := *s.admins[id]
	return &clone, nil
}

func (s *AdminStore) Upsert(ctx context.Context, admin *store.Admin) (*store.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *admin
	clone.Email = store.NormalizeEmail(admin.Email)
	now := time.Now().UTC()

	if id, ok := s.byEmail[clone.Email]; ok {
		existing := s.admins[id]
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		clone.ID = id.String()
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	s.admins[clone.ID] = &clone
	s.byEmail[clone.Email] = clone.ID

	result := clone
	return &result, nil
}

func (s *AdminStore) UpdateProfile(ctx context.Context, id string, patch store.ProfilePatch) (*store.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[id]
	if !ok {
		return nil, store.ErrAdminNotFound
	}

	if patch.Name != nil {
		admin.Name = *patch.Name
	}
	if patch.Phone != nil {
		admin.Phone = *patch.Phone
	}
	if patch.PasswordHash != nil {
		admin.PasswordHash = *patch.PasswordHash
	}
	admin.UpdatedAt = time.Now().UTC()

	clone := *admin
	return &clone, nil
}
