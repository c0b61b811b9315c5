package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const defaultTokenFile = ".globus_transfer_rt"

// TokenFile persists the transfer refresh token between runs. Refresh
// tokens are lifetime credentials, so the file is written with owner-only
// permissions. The tool runs as a single instance at a time, so no
// concurrent-access protection is needed: one read at startup, at most one
// write per run.
type TokenFile struct {
	path string
}

// NewTokenFile returns a TokenFile at path; empty selects the default
// location in the user's home directory.
func NewTokenFile(path string) *TokenFile {
	if path == "" {
		path = filepath.Join(xdg.Home, defaultTokenFile)
	}
	return &TokenFile{path: path}
}

// Path returns the file location.
func (t *TokenFile) Path() string {
	return t.path
}

// Exists reports whether a persisted token is present.
func (t *TokenFile) Exists() bool {
	info, err := os.Stat(t.path)
	return err == nil && !info.IsDir()
}

// Load reads the persisted refresh token. Only the first line counts.
func (t *TokenFile) Load() (string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", t.path)
	}
	return token, nil
}

// Save writes the refresh token, creating the parent directory when needed.
func (t *TokenFile) Save(token string) error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(t.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the persisted token. A missing file is not an error.
func (t *TokenFile) Delete() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
