// Package session owns the session token and the gated request pipeline
// every backend call goes through.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TokenEnv overrides the stored token when set. It is never written.
const TokenEnv = "MTRACK_TOKEN"

// TokenInfo is the on-disk form of the session token.
type TokenInfo struct {
	Token     string    `json:"token"`
	Source    string    `json:"source"` // "env" | "file"
	CreatedAt time.Time `json:"created_at"`
}

// Store holds the process-wide session token in memory and in durable storage.
// It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	token  string
	source string
	done   chan struct{}
	ended  bool
}

// NewStore creates an empty store persisting to path. An empty path keeps the
// token in memory only.
func NewStore(path string) *Store {
	return &Store{path: path, done: make(chan struct{})}
}

// Load populates the store from the environment override or the token file.
// A missing file is not an error: the session simply starts logged out.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		s.setLocked(stripBearer(env), "env")
		return nil
	}
	if s.path == "" {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read token: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if tok := stripBearer(strings.TrimSpace(ti.Token)); tok != "" {
		s.setLocked(tok, "file")
	}
	return nil
}

// Token returns the current token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsLoggedIn reports whether a token is present.
func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// Source reports where the current token came from ("env", "file" or "").
func (s *Store) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Done returns a channel closed when the current session ends, by logout or
// expiry. A new channel is issued on the next login.
func (s *Store) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// current returns the token together with the channel of the session it
// belongs to. Logged out, the channel is nil so it never fires.
func (s *Store) current() (string, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", nil
	}
	return s.token, s.done
}

// Login stores token in memory and on disk.
func (s *Store) Login(token string) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		b, err := json.MarshalIndent(TokenInfo{Token: token, Source: "file", CreatedAt: time.Now()}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if err := os.WriteFile(s.path, b, 0o600); err != nil {
			return fmt.Errorf("write token: %w", err)
		}
	}
	s.setLocked(token, "file")
	return nil
}

// Logout clears the token from memory and disk and ends the session. A token
// taken from the environment is only dropped from memory.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Expire clears the session if token is still the current one. It returns
// true for exactly one caller per session, so concurrent authorization
// failures collapse into a single expiry.
func (s *Store) Expire(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.token != token {
		return false
	}
	// A failed file removal must not resurrect the session.
	_ = s.clearLocked()
	return true
}

func (s *Store) setLocked(token, source string) {
	s.token = token
	s.source = source
	if s.ended {
		s.done = make(chan struct{})
		s.ended = false
	}
}

func (s *Store) clearLocked() error {
	// An env token never came from the file, which may hold another session.
	fromEnv := s.source == "env"
	s.token = ""
	s.source = ""
	if !s.ended {
		close(s.done)
		s.ended = true
	}
	if s.path == "" || fromEnv {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
