package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrNoCredential is returned by a CredentialStore holding nothing.
var ErrNoCredential = errors.New("no stored credential")

// Credential is what a successful login leaves behind: the token, the
// cookies the backend set, and the cached admin identity.
type Credential struct {
	Token    string          `json:"token"`
	Cookies  []*http.Cookie  `json:"cookies,omitempty"`
	Admin    json.RawMessage `json:"admin,omitempty"`
	StoredAt time.Time       `json:"stored_at"`
}

// CredentialStore persists a single credential.
type CredentialStore interface {
	// Get returns ErrNoCredential when nothing is stored.
	Get() (*Credential, error)
	Set(cred *Credential) error
	// Clear removes the credential and any cached identity. Clearing an
	// empty store is not an error.
	Clear() error
}

// MemoryStore is a CredentialStore that lives for the process lifetime.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cred == nil {
		return nil, ErrNoCredential
	}
	return cloneCredential(m.cred), nil
}

func (m *MemoryStore) Set(cred *Credential) error {
	if cred == nil {
		return errors.New("credential is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = cloneCredential(cred)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = nil
	return nil
}

func cloneCredential(cred *Credential) *Credential {
	clone := *cred
	if cred.Cookies != nil {
		clone.Cookies = make([]*http.Cookie, len(cred.Cookies))
		for i, c := range cred.Cookies {
			cc := *c
			clone.Cookies[i] = &cc
		}
	}
	if cred.Admin != nil {
		clone.Admin = append(json.RawMessage(nil), cred.Admin...)
	}
	return &clone
}
