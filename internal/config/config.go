// Package config handles the configuration directory, file paths and settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName is the application directory name.
	AppName = "mtrack"

	// TokenFile is the stored session token filename.
	TokenFile = "token.json"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// EnvPrefix prefixes every environment override (MTRACK_API_URL, ...).
	EnvPrefix = "MTRACK_"

	// DefaultAPIURL is the backend address used when nothing else is configured.
	DefaultAPIURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds each backend request.
	DefaultTimeout = 10 * time.Second
)

// Setting keys, shared by the settings file, env vars and flag overrides.
const (
	KeyAPIURL  = "api_url"
	KeyTimeout = "timeout"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the tracker backend.
	APIURL string

	// Timeout bounds each backend request.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory
// and default settings. It does not read the settings file.
// If configDir is empty, uses XDG_CONFIG_HOME/mtrack or $HOME/.config/mtrack.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, APIURL: DefaultAPIURL, Timeout: DefaultTimeout}, nil
}

// Load builds a Config from defaults, the settings file in the config
// directory, MTRACK_* environment variables and finally overrides (usually
// flags), in increasing order of precedence.
func Load(configDir string, overrides map[string]any) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		KeyAPIURL:  DefaultAPIURL,
		KeyTimeout: DefaultTimeout.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if _, err := os.Stat(cfg.SettingsPath()); err == nil {
		if err := k.Load(file.Provider(cfg.SettingsPath()), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", cfg.SettingsPath(), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(k.String(KeyAPIURL)), "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyAPIURL)
	}
	cfg.Timeout = k.Duration(KeyTimeout)
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid %s: %q", KeyTimeout, k.String(KeyTimeout))
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// TokenPath returns the path to the stored session token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SettingsPath returns the path to the optional settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
