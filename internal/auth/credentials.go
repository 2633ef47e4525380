// Package auth provides the credential capability injected into the API
// transport. The transport never reaches into ambient storage; it asks the
// injected source for the current bearer token and invalidates it through
// the same handle when the server rejects it.
package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CredentialSource supplies the bearer credential attached to every
// protected request. Token returns an empty string when no credential is
// available; Invalidate discards the current credential so subsequent
// requests go out unauthenticated (and are rejected as such).
type CredentialSource interface {
	Token() string
	Set(token string) error
	Invalidate() error
}

// StaticToken is a fixed in-memory credential, primarily for tests and
// one-shot CLI invocations with an explicit --token flag.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken returns a CredentialSource holding the given token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *StaticToken) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *StaticToken) Invalidate() error {
	return s.Set("")
}

type fileCredential struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// FileTokenStore persists the credential to a JSON file so it survives CLI
// invocations. Reads are cached; Set and Invalidate write through.
type FileTokenStore struct {
	mu     sync.Mutex
	path   string
	loaded bool
	cached string
}

// NewFileTokenStore builds a store at the given path. An empty path
// defaults to $HOME/.agonx/credentials.json.
func NewFileTokenStore(path string) *FileTokenStore {
	if strings.TrimSpace(path) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".agonx", "credentials.json")
		}
	}
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		f.cached = f.readLocked()
		f.loaded = true
	}
	return f.cached
}

func (f *FileTokenStore) Set(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cred := fileCredential{
		AccessToken: token,
		TokenType:   "bearer",
		SavedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return err
	}
	f.cached = token
	f.loaded = true
	return nil
}

func (f *FileTokenStore) Invalidate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cached = ""
	f.loaded = true
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileTokenStore) readLocked() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	var cred fileCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return ""
	}
	return cred.AccessToken
}
