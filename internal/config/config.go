// Package config resolves the on-disk configuration under ~/.cmdguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".cmdguard"
	DefaultConfigFile = "config.yaml"
	DefaultLogFile    = "audit.jsonl"
)

// Config is what the CLI runs with after merging file values and flags.
type Config struct {
	ConfigDir string
	LogPath   string
	File      FileConfig
}

// FileConfig mirrors config.yaml. Zero values mean "use the default".
type FileConfig struct {
	// SafetyLevel is strict, moderate, or permissive.
	SafetyLevel string `yaml:"safety_level"`
	// LogPath overrides the default audit log location.
	LogPath string `yaml:"log_path"`
	// DisabledCategories turns off structural rules by category name.
	DisabledCategories []string `yaml:"disabled_categories"`
	// SubstDepth bounds command-substitution parsing. 0 keeps the default.
	SubstDepth int `yaml:"subst_depth"`
	// DisableUnicodeScan skips the invisible-character pass.
	DisableUnicodeScan bool `yaml:"disable_unicode_scan"`
	// Patterns are extra text-layer rules merged after the builtins.
	Patterns []PatternConfig `yaml:"patterns"`
}

// PatternConfig is one user-supplied pattern rule.
type PatternConfig struct {
	ID          string `yaml:"id"`
	Regex       string `yaml:"regex"`
	Risk        string `yaml:"risk"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Suggestion  string `yaml:"suggestion"`
}

// Load reads config.yaml from configPath, or from the default location
// when configPath is empty. A missing file is not an error; explicit
// paths that do not exist are.
func Load(configPath, logPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{ConfigDir: configDir}

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(configDir, DefaultConfigFile)
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg.File); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return nil, err
	}

	switch {
	case logPath != "":
		cfg.LogPath = logPath
	case cfg.File.LogPath != "":
		cfg.LogPath = cfg.File.LogPath
	default:
		cfg.LogPath = filepath.Join(configDir, DefaultLogFile)
	}

	return cfg, nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
