// Package config resolves questboard settings from ~/.questboard/config.json
// and QUESTBOARD_* environment variables. Command-line flags override both
// and are applied by the cli package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultServer       = "http://localhost:8000"
	DefaultAddr         = ":8000"
	DefaultPollInterval = 2000 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultCacheTTL     = 30 * time.Second
)

type Config struct {
	// Server is the base URL viewers and scriptable commands talk to.
	Server string `json:"server,omitempty"`
	// Addr is the listen address of `questboard serve`.
	Addr string `json:"addr,omitempty"`
	// DB is the SQLite file served by `questboard serve`, or used directly
	// by other commands when set on the command line.
	DB string `json:"db,omitempty"`
	// RedisURL enables the snapshot cache in front of the database.
	RedisURL string `json:"redisUrl,omitempty"`
	// PollIntervalMs is how often viewers refresh. Zero means the default.
	PollIntervalMs int `json:"pollIntervalMs,omitempty"`
	// Player is the default assignee for notes created from this machine.
	Player   string `json:"player,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`
	LogFile  string `json:"logFile,omitempty"`
}

func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.questboard).
	if v := strings.TrimSpace(os.Getenv("QUESTBOARD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".questboard"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultDBPath is where `serve` keeps its database when none is configured.
func DefaultDBPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "questboard.sqlite"
	}
	return filepath.Join(dir, "questboard.sqlite")
}

// Load reads the config file. A missing file is an empty config.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// Save writes cfg atomically, so concurrent CLI invocations never leave a
// torn file behind.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"QUESTBOARD_SERVER":        "server",
	"QUESTBOARD_ADDR":          "addr",
	"QUESTBOARD_DB":            "db",
	"QUESTBOARD_REDIS_URL":     "redisUrl",
	"QUESTBOARD_POLL_INTERVAL": "pollIntervalMs",
	"QUESTBOARD_PLAYER":        "player",
	"QUESTBOARD_LOG_LEVEL":     "logLevel",
	"QUESTBOARD_LOG_FILE":      "logFile",
}

// ApplyEnv overlays QUESTBOARD_* variables found by lookup onto cfg.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := c.Set(envKeys[name], v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{"server", "addr", "db", "redisUrl", "pollIntervalMs", "player", "logLevel", "logFile"}
}

// Set assigns one key from its string form.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "server":
		c.Server = value
	case "addr":
		c.Addr = value
	case "db":
		c.DB = value
	case "redisUrl":
		c.RedisURL = value
	case "pollIntervalMs":
		if value == "" {
			c.PollIntervalMs = 0
			return nil
		}
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			d, derr := time.ParseDuration(value)
			if derr != nil || d < 0 {
				return fmt.Errorf("invalid poll interval %q", value)
			}
			ms = int(d / time.Millisecond)
		}
		c.PollIntervalMs = ms
	case "player":
		c.Player = value
	case "logLevel":
		c.LogLevel = value
	case "logFile":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Get returns the string form of one key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "server":
		return c.Server, nil
	case "addr":
		return c.Addr, nil
	case "db":
		return c.DB, nil
	case "redisUrl":
		return c.RedisURL, nil
	case "pollIntervalMs":
		if c.PollIntervalMs == 0 {
			return "", nil
		}
		return strconv.Itoa(c.PollIntervalMs), nil
	case "player":
		return c.Player, nil
	case "logLevel":
		return c.LogLevel, nil
	case "logFile":
		return c.LogFile, nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// WithDefaults fills every empty field.
func (c Config) WithDefaults() Config {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = int(DefaultPollInterval / time.Millisecond)
	}
	return c
}

// Resolve loads the file, then the environment, then defaults.
func Resolve() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}
