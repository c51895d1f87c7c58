package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppName is the configuration directory name.
	AppName = "tasktalk"

	// SessionFile holds the server URL and token of the signed-in user.
	SessionFile = "session.json"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("not logged in; run `tt login` first")

// SavedSession is the on-disk session.
type SavedSession struct {
	Server string `json:"server"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// DefaultConfigDir uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SessionPath returns the session file inside dir.
func SessionPath(dir string) string {
	return filepath.Join(dir, SessionFile)
}

// LoadSession reads the session in dir.
func LoadSession(dir string) (*SavedSession, error) {
	data, err := os.ReadFile(SessionPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s SavedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// SaveSession writes s to dir, creating it with mode 0700.
func SaveSession(dir string, s *SavedSession) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(SessionPath(dir), data, 0600)
}

// RemoveSession deletes the session file. A missing file is not an error.
func RemoveSession(dir string) error {
	err := os.Remove(SessionPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
