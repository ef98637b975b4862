// Package credstore persists the inventag client's bearer token between
// invocations.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSession is returned when no session has been saved.
var ErrNoSession = errors.New(`no inventag session found; run "inventag login" first`)

// Session is the saved login state.
type Session struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Server    string    `json:"server"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token expiry has passed at now. Sessions
// without a recorded expiry never report expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Path returns the session file location: $INVENTAG_SESSION_FILE, else
// $XDG_CONFIG_HOME/inventag/session.json, else ~/.config/inventag/session.json.
func Path() string {
	if envPath := os.Getenv("INVENTAG_SESSION_FILE"); envPath != "" {
		return envPath
	}
	return filepath.Join(ConfigDir(), "session.json")
}

// ConfigDir returns the inventag configuration directory.
func ConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "inventag")
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "inventag")
}

// Load reads the session at path.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session file %s: %w", path, err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("parse session file %s: %w", path, err)
	}
	if session.Token == "" {
		return Session{}, fmt.Errorf("session file %s has no token", path)
	}
	if session.Server == "" {
		return Session{}, fmt.Errorf("session file %s has no server", path)
	}
	return session, nil
}

// Save writes session to path with owner-only permissions.
func Save(session Session, path string) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod session file %s: %w", path, err)
	}
	return nil
}

// Clear removes the session at path. A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file %s: %w", path, err)
	}
	return nil
}
