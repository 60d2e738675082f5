package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/admindash/internal/store"
)

var _ store.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements store.DocumentStore using in-memory storage.
// Data is lost on restart.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	now         func() time.Time
}

type collection struct {
	order []string
	docs  map[string]store.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

func (s *DocumentStore) List(ctx context.Context, name string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []store.Document{}, nil
	}

	docs := make([]store.Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id].Clone())
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, name, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *DocumentStore) Create(ctx context.Context, name string, doc store.Document) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]store.Document)}
		s.collections[name] = c
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored := doc.Body().Stamp(id.String(), now, now)

	c.order = append(c.order, stored.ID())
	c.docs[stored.ID()] = stored

	return stored.Clone(), nil
}

func (s *DocumentStore) Update(ctx context.Context, name, id string, patch store.Document) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	updated := doc.Merge(patch)
	updated[store.KeyUpdatedAt] = s.now().UTC()
	c.docs[id] = updated

	return updated.Clone(), nil
}

func (s *DocumentStore) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return store.ErrNotFound
	}

	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *DocumentStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	return len(c.order), nil
}
