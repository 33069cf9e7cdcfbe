// Package config loads the svmtrace YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fortiblox/svmtrace/internal/types"
)

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Default configuration values.
const (
	// DefaultTraceLogPath is the default rendered-trace file.
	DefaultTraceLogPath = "svmtrace.log"

	// DefaultLogStorePath is the default decoded-log database file.
	DefaultLogStorePath = "logs.db"

	// DefaultAccountStorePath is the default account database directory.
	DefaultAccountStorePath = "accounts"

	// DefaultMaxSizeMB is the trace file size that triggers rotation.
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups is the number of rotated trace files to keep.
	DefaultMaxBackups = 5

	// DefaultMaxAgeDays is the retention age for rotated trace files.
	DefaultMaxAgeDays = 30
)

// TraceLogConfig configures the rendered trace output.
type TraceLogConfig struct {
	// Path is the trace file path. Environment references like ${HOME}
	// are expanded.
	Path string `yaml:"path"`

	// EchoSuccess renders successful transactions as well as failed ones.
	EchoSuccess bool `yaml:"echo_success"`

	// MaxSizeMB, MaxBackups, and MaxAgeDays control rotation.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// AccountStoreConfig configures the account-state store.
type AccountStoreConfig struct {
	// Path is the database directory.
	Path string `yaml:"path"`

	// InMemory runs the store without touching disk.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites syncs every write to disk.
	SyncWrites bool `yaml:"sync_writes"`
}

// LogStoreConfig configures the decoded-log store.
type LogStoreConfig struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// NoSync disables fsync after each write.
	NoSync bool `yaml:"no_sync"`
}

// Config is the top-level svmtrace configuration.
type Config struct {
	TraceLog     TraceLogConfig     `yaml:"trace_log"`
	AccountStore AccountStoreConfig `yaml:"account_store"`
	LogStore     LogStoreConfig     `yaml:"log_store"`

	// ProgramNames maps base58 program identifiers to display names.
	// Entries are registered as name-only registry entries, so known but
	// undecoded programs render with a real name instead of the fallback.
	ProgramNames map[string]string `yaml:"program_names"`

	// LogLevel is the diagnostic log level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() Config {
	return Config{
		TraceLog: TraceLogConfig{
			Path:       DefaultTraceLogPath,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAgeDays: DefaultMaxAgeDays,
		},
		AccountStore: AccountStoreConfig{Path: DefaultAccountStorePath},
		LogStore:     LogStoreConfig{Path: DefaultLogStorePath},
		LogLevel:     "info",
	}
}

// Load reads and parses a configuration file. Environment references are
// expanded before parsing, defaults are applied for zero values, and the
// result is validated.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse parses configuration bytes. See Load.
func Parse(raw []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(raw))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefaults fills zero values with defaults.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.TraceLog.Path == "" {
		c.TraceLog.Path = defaults.TraceLog.Path
	}
	if c.TraceLog.MaxSizeMB == 0 {
		c.TraceLog.MaxSizeMB = defaults.TraceLog.MaxSizeMB
	}
	if c.TraceLog.MaxBackups == 0 {
		c.TraceLog.MaxBackups = defaults.TraceLog.MaxBackups
	}
	if c.TraceLog.MaxAgeDays == 0 {
		c.TraceLog.MaxAgeDays = defaults.TraceLog.MaxAgeDays
	}
	if c.AccountStore.Path == "" {
		c.AccountStore.Path = defaults.AccountStore.Path
	}
	if c.LogStore.Path == "" {
		c.LogStore.Path = defaults.LogStore.Path
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	for key := range c.ProgramNames {
		if _, err := types.PubkeyFromBase58(key); err != nil {
			return fmt.Errorf("%w: program name key %q is not a valid pubkey", ErrInvalidConfig, key)
		}
	}
	return nil
}

// expandEnvVars expands ${VAR} references in a string.
func expandEnvVars(s string) string {
	result := s
	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		name := result[start+2 : end]
		result = result[:start] + os.Getenv(name) + result[end+1:]
	}
	return result
}
