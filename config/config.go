// Package config resolves runtime settings from command-line flags and
// CASEDESK_* environment variables, flags winning.
package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/casedesk/go-casedesk/client"
	"github.com/casedesk/go-casedesk/logger"
	"github.com/casedesk/go-casedesk/reqcache"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Config holds everything the application needs to start.
type Config struct {
	// DBPath is the SQLite database location. Empty means in-memory.
	DBPath string

	// Request cache tuning.
	CacheTTL        time.Duration
	SweepInterval   time.Duration
	OrphanThreshold time.Duration

	// Per-command cache lifetimes.
	TTLs client.TTLs
}

// Load builds a Config from the environment. Durations accept compound
// forms like "1m30s" or "2h".
func Load() (Config, error) {
	cfg := Config{
		DBPath:          envOr("CASEDESK_DB", DefaultDBPath()),
		CacheTTL:        reqcache.DefaultTTL,
		SweepInterval:   reqcache.DefaultSweepInterval,
		OrphanThreshold: reqcache.DefaultOrphanThreshold,
		TTLs:            client.DefaultTTLs,
	}

	for _, d := range []struct {
		key  string
		dest *time.Duration
	}{
		{"CASEDESK_CACHE_TTL", &cfg.CacheTTL},
		{"CASEDESK_CACHE_SWEEP_INTERVAL", &cfg.SweepInterval},
		{"CASEDESK_CACHE_ORPHAN_THRESHOLD", &cfg.OrphanThreshold},
		{"CASEDESK_TTL_FILES", &cfg.TTLs.Files},
		{"CASEDESK_TTL_COUNTS", &cfg.TTLs.Counts},
		{"CASEDESK_TTL_DUPLICATES", &cfg.TTLs.Duplicates},
		{"CASEDESK_TTL_NOTES", &cfg.TTLs.Notes},
		{"CASEDESK_TTL_SOURCES", &cfg.TTLs.Sources},
	} {
		if err := duration(d.key, d.dest); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// DefaultDBPath is the per-user database location, casedesk.db under the
// OS config directory. Falls back to the working directory when the config
// directory cannot be determined.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "casedesk.db"
	}
	return filepath.Join(dir, "casedesk", "casedesk.db")
}

func envOr(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

// duration overwrites *dest when key is set and parses.
func duration(key string, dest *time.Duration) error {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return nil
	}
	d, err := str2duration.ParseDuration(val)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", key)
	}
	*dest = d
	return nil
}

// FlagOrEnv returns the flag's value when set, then the environment
// variable, then defaultValue.
func FlagOrEnv(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// LogLevel resolves the logging level from the log-level flag, falling back
// to CASEDESK_LOG_LEVEL and then info.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", "CASEDESK_LOG_LEVEL", "info"))
}

// NewLogger returns a console logger at the level LogLevel resolves.
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}
