// ABOUTME: Holds the authenticated identity and persists it across runs
// ABOUTME: Token and user are stored together in one file, or not at all

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aldavm/valhalla-cli/internal/client"
	"go.uber.org/zap"
)

const sessionFile = "session.json"

// persistedSession is the on-disk shape. Both fields are written together;
// a record missing either is treated as absent.
type persistedSession struct {
	Token string       `json:"token"`
	User  *client.User `json:"user"`
}

// LogoutGateway is the server-side invalidation call used during logout
type LogoutGateway interface {
	Logout(ctx context.Context) error
}

// Store is the single source of truth for the authenticated identity.
// Construct one in command wiring and hand references to consumers; there is
// no package-level instance.
type Store struct {
	mu    sync.Mutex
	path  string
	log   *zap.Logger
	token string
	user  *client.User
}

// Open loads any persisted session from configDir. A missing or corrupt file
// simply yields a logged-out store.
func Open(configDir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: filepath.Join(configDir, sessionFile), log: log}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec persistedSession
	if err := json.Unmarshal(data, &rec); err != nil {
		// Invalid JSON, start logged out
		log.Warn("discarding unreadable session file", zap.Error(err))
		return s, nil
	}
	if rec.Token != "" && rec.User != nil {
		s.token = rec.Token
		s.user = rec.User
	}
	return s, nil
}

// IsAuthenticated reports whether both token and user are present
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.user != nil
}

// Token returns the bearer token, or "" when logged out
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the authenticated user, or nil when logged out
func (s *Store) User() *client.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Login sets and persists the identity. Both values must be present.
func (s *Store) Login(token string, user *client.User) error {
	if token == "" || user == nil {
		return fmt.Errorf("both token and user are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	return s.persistLocked()
}

// Logout best-effort invalidates the token server-side, then unconditionally
// clears local state. A failed server call never blocks the local clear.
func (s *Store) Logout(ctx context.Context, gw LogoutGateway) error {
	if gw != nil && s.Token() != "" {
		if err := gw.Logout(ctx); err != nil {
			s.log.Warn("server logout failed, clearing local session anyway", zap.Error(err))
		}
	}
	return s.ClearLocal()
}

// ClearLocal removes the identity from memory and disk. Called on logout and
// whenever an authenticated request comes back unauthorized.
func (s *Store) ClearLocal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// persistLocked writes the session file. Caller holds s.mu.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(persistedSession{Token: s.token, User: s.user}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
