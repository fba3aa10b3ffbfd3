// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the resolved configuration.
type Config struct {
	// Server and OAuth app registration
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// Credential storage
	NoKeyring      bool   `json:"no_keyring"`
	CredentialsDir string `json:"credentials_dir"`

	// Output settings
	Format string `json:"format"`

	// Cache freshness per resource kind
	CacheTTL CacheTTL `json:"cache_ttl"`

	// Export behavior
	ExportPageSize    int `json:"export_page_size"`
	ExportConcurrency int `json:"export_concurrency"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// CacheTTL holds per-kind cache lifetimes. Zero means "use the built-in default".
type CacheTTL struct {
	Customer    time.Duration `json:"customer"`
	Operations  time.Duration `json:"operations"`
	Events      time.Duration `json:"events"`
	Permissions time.Duration `json:"permissions"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL   string
	Format    string
	NoKeyring bool
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		CredentialsDir:    GlobalConfigDir(),
		Format:            "auto",
		ExportPageSize:    500,
		ExportConcurrency: 4,
		Sources:           make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (cfg *Config) Validate() error {
	if cfg.ExportPageSize < 1 || cfg.ExportPageSize > 500 {
		return fmt.Errorf("export_page_size must be between 1 and 500, got %d", cfg.ExportPageSize)
	}
	if cfg.ExportConcurrency < 1 {
		return fmt.Errorf("export_concurrency must be positive, got %d", cfg.ExportConcurrency)
	}
	for kind, ttl := range cfg.CacheTTL.byKind() {
		if ttl < 0 {
			return fmt.Errorf("cache_ttl.%s must not be negative", kind)
		}
	}
	return nil
}

func (t CacheTTL) byKind() map[string]time.Duration {
	return map[string]time.Duration{
		"customer":    t.Customer,
		"operations":  t.Operations,
		"events":      t.Events,
		"permissions": t.Permissions,
	}
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	setString := func(key string, dst *string) {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}
	setString("base_url", &cfg.BaseURL)
	setString("client_id", &cfg.ClientID)
	setString("client_secret", &cfg.ClientSecret)
	setString("credentials_dir", &cfg.CredentialsDir)
	setString("format", &cfg.Format)

	if v, ok := fileCfg["no_keyring"].(bool); ok {
		cfg.NoKeyring = v
		cfg.Sources["no_keyring"] = string(source)
	}
	if v, ok := getInt(fileCfg, "export_page_size"); ok {
		cfg.ExportPageSize = v
		cfg.Sources["export_page_size"] = string(source)
	}
	if v, ok := getInt(fileCfg, "export_concurrency"); ok {
		cfg.ExportConcurrency = v
		cfg.Sources["export_concurrency"] = string(source)
	}

	ttls, ok := fileCfg["cache_ttl"].(map[string]any)
	if !ok {
		return
	}
	for kind, dst := range map[string]*time.Duration{
		"customer":    &cfg.CacheTTL.Customer,
		"operations":  &cfg.CacheTTL.Operations,
		"events":      &cfg.CacheTTL.Events,
		"permissions": &cfg.CacheTTL.Permissions,
	} {
		raw, ok := ttls[kind].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: ignoring cache_ttl.%s %q in %s: %v\n", kind, raw, path, err)
			continue
		}
		*dst = d
		cfg.Sources["cache_ttl."+kind] = string(source)
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DCADMIN_BASE_URL"); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(SourceEnv)
	}
	if v := os.Getenv("DCADMIN_CLIENT_ID"); v != "" {
		cfg.ClientID = v
		cfg.Sources["client_id"] = string(SourceEnv)
	}
	if v := os.Getenv("DCADMIN_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
		cfg.Sources["client_secret"] = string(SourceEnv)
	}
	if v := os.Getenv("DCADMIN_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
	if v := os.Getenv("DCADMIN_NO_KEYRING"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.NoKeyring = b
			cfg.Sources["no_keyring"] = string(SourceEnv)
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Returns (value, true) for recognized values, (false, false) for unrecognized.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// getInt extracts a whole JSON number.
func getInt(m map[string]any, key string) (int, bool) {
	f, ok := m[key].(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
	if o.NoKeyring {
		cfg.NoKeyring = true
		cfg.Sources["no_keyring"] = string(SourceFlag)
	}
}

// SourceOf reports where key was set, defaulting to SourceDefault.
func (cfg *Config) SourceOf(key string) Source {
	if s, ok := cfg.Sources[key]; ok {
		return Source(s)
	}
	return SourceDefault
}

// Path helpers

func systemConfigPath() string {
	return "/etc/dcadmin/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "dcadmin")
}
