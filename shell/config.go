package shell

import (
	"github.com/hazyhaar/tabview/shell/internal/config"
)

// Config is the top-level tabview configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// ThumbnailConfig controls thumbnail acquisition and encoding.
type ThumbnailConfig = config.ThumbnailConfig

// StoreConfig locates the SQLite database.
type StoreConfig = config.StoreConfig

// SessionConfig controls session save and restore.
type SessionConfig = config.SessionConfig

// HTTPConfig controls the API listener.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
