// CLAUDE:SUMMARY Defines tabview config structs and parses YAML configuration files with defaults.
// Package config handles tab shell configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tabview configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	HTTP      HTTPConfig      `yaml:"http"`
	Views     []string        `yaml:"views"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	Viewport         Viewport      `yaml:"viewport"`
}

// Viewport is the content area size of every surface, in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ThumbnailConfig controls thumbnail acquisition and encoding.
type ThumbnailConfig struct {
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	PixelRatio     float64       `yaml:"pixel_ratio"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	Format         string        `yaml:"format"` // jpeg | png
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	DBPath          string        `yaml:"db_path"`
	ThumbnailMaxAge time.Duration `yaml:"thumbnail_max_age"`
	DiagnosticsAge  time.Duration `yaml:"diagnostics_max_age"`

	// Trace logs every store statement at debug level, slow ones at warn.
	Trace bool `yaml:"trace"`
}

// SessionConfig controls session save and restore.
type SessionConfig struct {
	Restore     bool `yaml:"restore"`
	SaveOnClose bool `yaml:"save_on_close"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`

	// RateLimit is mutating requests per minute per client IP. Negative
	// disables the limiter. Default: 120.
	RateLimit int `yaml:"rate_limit"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Validate rejects values the defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth must be headless or headful, got %q", c.Browser.Stealth)
	}
	switch c.Thumbnail.Format {
	case "jpeg", "png":
	default:
		return fmt.Errorf("config: thumbnail.format must be jpeg or png, got %q", c.Thumbnail.Format)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.Viewport.Width <= 0 {
		c.Browser.Viewport.Width = 1280
	}
	if c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport.Height = 800
	}
	if c.Thumbnail.Width <= 0 {
		c.Thumbnail.Width = 200
	}
	if c.Thumbnail.Height <= 0 {
		c.Thumbnail.Height = 150
	}
	if c.Thumbnail.PixelRatio <= 0 {
		c.Thumbnail.PixelRatio = 1
	}
	if c.Thumbnail.CaptureTimeout <= 0 {
		c.Thumbnail.CaptureTimeout = 10 * time.Second
	}
	if c.Thumbnail.Format == "" {
		c.Thumbnail.Format = "jpeg"
	}
	if c.Store.DBPath == "" {
		c.Store.DBPath = "tabview.db"
	}
	if c.Store.ThumbnailMaxAge <= 0 {
		c.Store.ThumbnailMaxAge = 30 * 24 * time.Hour
	}
	if c.Store.DiagnosticsAge <= 0 {
		c.Store.DiagnosticsAge = 7 * 24 * time.Hour
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8087"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 120
	}
}
