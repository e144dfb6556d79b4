// Package config reads the environment-style configuration surface once at
// startup and hands the rest of the process an immutable value. Nothing in
// here touches the environment after Load returns, so tests can build a
// Config literal instead of mutating os.Environ.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names.
const (
	EnvRoot        = "SGMCP_ROOT"
	EnvBinary      = "SGMCP_BINARY"
	EnvMaxFiles    = "SGMCP_MAX_FILES"
	EnvMaxFileSize = "SGMCP_MAX_FILE_SIZE"
	EnvTimeoutMS   = "SGMCP_TIMEOUT_MS"
	EnvLogFile     = "SGMCP_LOG_FILE"
	EnvLogLevel    = "SGMCP_LOG_LEVEL"
)

// Defaults for the resource ceilings and the operation timeout.
const (
	DefaultMaxFiles       = 100_000
	DefaultMaxFileSize    = 10 * 1024 * 1024
	DefaultSearchTimeout  = 30 * time.Second
	DefaultApplyTimeout   = 60 * time.Second
	DefaultMaxPathDepth   = 10
	DefaultAncestorHops   = 12
	DefaultToolDirName    = ".sgmcp"
	DefaultRulesSubdir    = "rules"
	DefaultBackupsSubdir  = "backups"
	DefaultManagedBinDir  = "bin"
	DefaultEngineBinaries = "ast-grep,sg"
)

// Config is the read-once configuration consumed by the composition root.
type Config struct {
	// WorkspaceRoot is an explicit sandbox root override. Empty means
	// auto-detect from the working directory.
	WorkspaceRoot string

	// EngineBinary is an explicit path to the external engine. Empty means
	// resolve via PATH, then the managed install directory.
	EngineBinary string

	// MaxFiles caps the total file count a single request may scan.
	MaxFiles int

	// MaxFileSize is the per-file byte ceiling; larger files produce a
	// warning, not a failure.
	MaxFileSize int64

	// DefaultTimeout overrides the per-kind default operation timeout
	// when set; zero keeps the per-kind defaults.
	DefaultTimeout time.Duration

	// LogFile receives structured logs; empty means stderr. stdout is
	// never an option — it belongs to the stdio transport.
	LogFile string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
}

// Load reads the configuration from the environment, applying defaults for
// anything unset or unparseable. Bad numeric values fall back to defaults
// rather than failing startup.
func Load() Config {
	cfg := Config{
		WorkspaceRoot: os.Getenv(EnvRoot),
		EngineBinary:  os.Getenv(EnvBinary),
		MaxFiles:      intEnv(EnvMaxFiles, DefaultMaxFiles),
		MaxFileSize:   int64(intEnv(EnvMaxFileSize, DefaultMaxFileSize)),
		LogFile:       os.Getenv(EnvLogFile),
		LogLevel:      os.Getenv(EnvLogLevel),
	}
	if ms := intEnv(EnvTimeoutMS, 0); ms > 0 {
		cfg.DefaultTimeout = time.Duration(ms) * time.Millisecond
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// intEnv parses an integer environment variable, returning fallback when the
// variable is unset, empty, or not a positive integer.
func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
