// Package settings stores chmloc user credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/chmloc/  (default: ~/.local/share/chmloc/)
//
// auth.json is a JSON object keyed by engine name, each value holding the
// API key and, for Microsoft, the subscription region. File permissions
// are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. Engine environment variable (e.g. DEEPL_API_KEY)
//  3. CHMLOC_API_KEY environment variable
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDirName = "chmloc"
	fileName    = "auth.json"
)

// Info is the credential entry stored per engine in auth.json.
type Info struct {
	Key    string `json:"key"`
	Region string `json:"region,omitempty"` // Microsoft subscription region
}

// Store holds all engine credentials, keyed by engine name.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for chmloc.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the chmloc data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return make(Store)
	}

	if store == nil {
		return make(Store)
	}

	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the credential entry for an engine, or nil if not found.
func Get(engine string) *Info {
	store := Load()
	return store[engine]
}

// Set stores a credential entry for an engine (upsert).
func Set(engine string, info *Info) error {
	store := Load()
	store[engine] = info
	return Save(store)
}

// Remove deletes credentials for an engine.
func Remove(engine string) error {
	store := Load()
	if _, ok := store[engine]; !ok {
		return nil // Nothing to delete
	}
	delete(store, engine)
	return Save(store)
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// API key helpers
// ---------------------------------------------------------------------------

// SetAPIKey stores an API key for an engine, preserving any stored region.
func SetAPIKey(engine, key string) error {
	store := Load()
	info := &Info{Key: key}
	if existing := store[engine]; existing != nil {
		info.Region = existing.Region
	}
	store[engine] = info
	return Save(store)
}

// GetAPIKey retrieves the stored API key for an engine.
// Returns empty string if not found.
func GetAPIKey(engine string) string {
	info := Get(engine)
	if info == nil {
		return ""
	}
	return info.Key
}

// GetRegion retrieves the stored region for an engine.
func GetRegion(engine string) string {
	info := Get(engine)
	if info == nil {
		return ""
	}
	return info.Region
}

// EnvVarForEngine returns the environment variable consulted for an
// engine's API key, for example DEEPL_API_KEY.
func EnvVarForEngine(engine string) string {
	switch engine {
	case "deepl", "microsoft", "google":
		return strings.ToUpper(engine) + "_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey resolves an engine's API key following the documented
// lookup order: flag, engine env var, CHMLOC_API_KEY, credential store.
func ResolveAPIKey(engine, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := EnvVarForEngine(engine); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if v := os.Getenv("CHMLOC_API_KEY"); v != "" {
		return v
	}
	return GetAPIKey(engine)
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
