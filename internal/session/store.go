// Package session holds the client-side credential state: access/refresh
// tokens and the current-user record. It is the only place that reads or
// writes credentials; everything else goes through Get/Set/Clear.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotLoggedIn is returned when no stored credentials exist.
var ErrNotLoggedIn = errors.New("not logged in")

// User is the serialized current-user record returned at login.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Credentials is the persisted credential state.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Store persists credentials in one of two files: a durable one under the
// user config dir (remember-me logins) or a session-scoped one under the
// temp dir that does not survive a reboot. Reads consult both; writes go to
// exactly one and remove the other, so the last login decides the storage.
type Store struct {
	durablePath string
	sessionPath string
}

// NewStore creates a store with the default file locations.
func NewStore() (*Store, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return &Store{
		durablePath: filepath.Join(cfgDir, "guidectl", "session.json"),
		sessionPath: filepath.Join(os.TempDir(), fmt.Sprintf("guidectl-session-%d.json", os.Getuid())),
	}, nil
}

// NewStoreAt creates a store with explicit paths (for testing).
func NewStoreAt(durablePath, sessionPath string) *Store {
	return &Store{durablePath: durablePath, sessionPath: sessionPath}
}

// Get returns the stored credentials, preferring the durable file.
// Returns ErrNotLoggedIn when neither file exists.
func (s *Store) Get() (*Credentials, error) {
	for _, path := range []string{s.durablePath, s.sessionPath} {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		var creds Credentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return &creds, nil
	}
	return nil, ErrNotLoggedIn
}

// Set writes credentials to the durable file when remember is true, else to
// the session-scoped file. The other file is removed so only one storage
// holds credentials at a time.
func (s *Store) Set(creds *Credentials, remember bool) error {
	target, other := s.sessionPath, s.durablePath
	if remember {
		target, other = s.durablePath, s.sessionPath
	}

	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(target, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Remove(other); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale credentials: %w", err)
	}
	return nil
}

// Remembered reports whether the stored credentials live in the durable
// file, so a token refresh can rewrite them to the same storage.
func (s *Store) Remembered() bool {
	_, err := os.Stat(s.durablePath)
	return err == nil
}

// Clear removes all stored credential state.
func (s *Store) Clear() error {
	for _, path := range []string{s.durablePath, s.sessionPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credentials: %w", err)
		}
	}
	return nil
}

// ExpiresWithin reports whether the access token's exp claim falls inside
// the given window. Tokens without a parseable exp claim report false, so
// the 401-and-retry path still covers them.
func (c *Credentials) ExpiresWithin(window time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	token, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < window
}
