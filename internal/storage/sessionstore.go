// Package storage persists the console's only local state: the short-lived
// authentication session.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Fixed keys under which the session values are stored.
const (
	KeyToken  = "pm_token"
	KeyRole   = "pm_role"
	KeyUserID = "pm_userId"
)

// SessionValues are the three strings that make up a persisted session.
type SessionValues struct {
	Token  string
	Role   string
	UserID string
}

// IsZero reports whether no session is stored.
func (v SessionValues) IsZero() bool {
	return v.Token == "" && v.Role == "" && v.UserID == ""
}

// SessionStore defines the interface for persisting the auth session.
type SessionStore interface {
	Load() (SessionValues, error)
	Save(values SessionValues) error
	Clear() error
}

type fileSessionStore struct {
	path string
}

// NewSessionStore creates a SessionStore backed by a YAML file at path.
func NewSessionStore(path string) SessionStore {
	return &fileSessionStore{path: path}
}

// Load reads the session file. A missing file yields zero values.
func (s *fileSessionStore) Load() (SessionValues, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionValues{}, nil
		}
		return SessionValues{}, fmt.Errorf("reading session file: %w", err)
	}

	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return SessionValues{}, fmt.Errorf("parsing session file: %w", err)
	}
	return SessionValues{
		Token:  raw[KeyToken],
		Role:   raw[KeyRole],
		UserID: raw[KeyUserID],
	}, nil
}

// Save writes all three values together, replacing any previous session.
func (s *fileSessionStore) Save(values SessionValues) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("saving session: creating directory: %w", err)
	}

	data, err := yaml.Marshal(map[string]string{
		KeyToken:  values.Token,
		KeyRole:   values.Role,
		KeyUserID: values.UserID,
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	// Write to a sibling temp file and rename so readers never see a
	// half-written session.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *fileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
