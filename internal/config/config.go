// Package config wraps the viper singleton behind typed accessors. Values
// resolve env var > config file > default, with GRNS_ prefixed variables
// mapping onto hyphenated keys (GRNS_LOG_FILE -> log-file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// WorkspaceDirName is the per-project dot directory holding the config
// file, manifest, and database.
const WorkspaceDirName = ".grns"

// Initialize sets up the viper singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Precedence: project .grns/config.yaml (walked up from CWD) >
	// ~/.config/grns/config.yaml > ~/.grns/config.yaml.
	configFileSet := false
	if dir, ok := FindWorkspaceDir(); ok {
		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			configFileSet = true
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "grns", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, WorkspaceDirName, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("GRNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", "127.0.0.1:4242")
	v.SetDefault("db", "")
	v.SetDefault("prefix", "gr")
	v.SetDefault("json", false)
	v.SetDefault("format", "")
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("lock-timeout", "30s")
	v.SetDefault("stale-days", 30)
	v.SetDefault("repo", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// FindWorkspaceDir walks up from the working directory looking for a .grns
// directory.
func FindWorkspaceDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, WorkspaceDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		if dir == filepath.Dir(dir) {
			return "", false
		}
	}
}

// DBPath resolves the database location: the db key when set, otherwise
// <workspace>/grns.db, otherwise grns.db in the working directory.
func DBPath() string {
	if path := GetString("db"); path != "" {
		return path
	}
	if dir, ok := FindWorkspaceDir(); ok {
		return filepath.Join(dir, "grns.db")
	}
	return "grns.db"
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, typically from a cobra flag.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every effective configuration value.
func AllSettings() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return v.AllSettings()
}
