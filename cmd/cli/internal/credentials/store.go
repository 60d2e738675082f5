package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/admindash/internal/session"
)

const configFile = "sessions.json"

// ErrCorrupt is returned by reads when the sessions file cannot be parsed.
// Writes replace a corrupt file instead of failing.
var ErrCorrupt = errors.New("sessions file is corrupt")

// Config represents the sessions file: one credential per server URL.
type Config struct {
	Version  int                           `json:"version"`
	Sessions map[string]session.Credential `json:"sessions"`

	// reset is set when a corrupt file was replaced by an empty config.
	reset bool
}

// Store keeps credentials on the local filesystem. Each Store is scoped to
// a single server URL and implements session.CredentialStore for it.
type Store struct {
	baseDir string
	server  string

	mu sync.Mutex
}

var _ session.CredentialStore = (*Store)(nil)

// NewStore creates a credential store for server.
// If baseDir is empty, uses ~/.admindash/
func NewStore(baseDir, server string) (*Store, error) {
	if server == "" {
		return nil, errors.New("server URL is required")
	}

	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".admindash")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir, server: strings.TrimRight(server, "/")}

	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Str("server", store.server).Msg("credential store initialized")

	return store, nil
}

// Path returns the location of the sessions file.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, configFile)
}

// Get returns the credential for the store's server.
func (s *Store) Get() (*session.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	cred, ok := cfg.Sessions[s.server]
	if !ok {
		return nil, session.ErrNoCredential
	}

	return &cred, nil
}

// Set replaces the credential for the store's server.
func (s *Store) Set(cred *session.Credential) error {
	if cred == nil {
		return errors.New("credential is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadForWrite()
	if err != nil {
		return err
	}

	stored := *cred
	if stored.StoredAt.IsZero() {
		stored.StoredAt = time.Now().UTC()
	}
	cfg.Sessions[s.server] = stored

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", s.server).Msg("credential stored")

	return nil
}

// Clear removes the credential and cached admin profile for the server.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadForWrite()
	if err != nil {
		return err
	}

	if _, ok := cfg.Sessions[s.server]; !ok && !cfg.reset {
		return nil
	}

	delete(cfg.Sessions, s.server)

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", s.server).Msg("credential cleared")

	return nil
}

// Servers lists every server with a stored credential.
func (s *Store) Servers() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	servers := make([]string, 0, len(cfg.Sessions))
	for server := range cfg.Sessions {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	return servers, nil
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	if _, err := os.Stat(s.Path()); err == nil {
		return nil
	}

	return s.saveConfig(&Config{
		Version:  1,
		Sessions: make(map[string]session.Credential),
	})
}

// loadConfig reads the config file.
func (s *Store) loadConfig() (*Config, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if cfg.Sessions == nil {
		cfg.Sessions = make(map[string]session.Credential)
	}

	return &cfg, nil
}

// loadForWrite reads the config, starting over when the file is corrupt so
// a bad file never blocks logout or a fresh login.
func (s *Store) loadForWrite() (*Config, error) {
	cfg, err := s.loadConfig()
	if errors.Is(err, ErrCorrupt) || errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", s.Path()).Msg("replacing unreadable sessions file")
		return &Config{
			Version:  1,
			Sessions: make(map[string]session.Credential),
			reset:    true,
		}, nil
	}
	return cfg, err
}

// saveConfig writes the config file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions file: %w", err)
	}

	configPath := s.Path()
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write sessions file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save sessions file: %w", err)
	}

	return nil
}
