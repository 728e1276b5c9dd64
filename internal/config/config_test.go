package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File.SafetyLevel != "" {
		t.Errorf("unexpected safety level %q", cfg.File.SafetyLevel)
	}
	wantLog := filepath.Join(cfg.ConfigDir, DefaultLogFile)
	if cfg.LogPath != wantLog {
		t.Errorf("LogPath = %q, want %q", cfg.LogPath, wantLog)
	}
	if _, err := os.Stat(cfg.ConfigDir); err != nil {
		t.Errorf("config dir not created: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	yaml := `safety_level: strict
log_path: /var/log/cmdguard.jsonl
disabled_categories: [network]
subst_depth: 5
patterns:
  - id: corp-deploy
    regex: 'deploy\s+--prod'
    risk: high
    category: execution
    description: Production deploy
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File.SafetyLevel != "strict" {
		t.Errorf("SafetyLevel = %q", cfg.File.SafetyLevel)
	}
	if cfg.LogPath != "/var/log/cmdguard.jsonl" {
		t.Errorf("LogPath = %q", cfg.LogPath)
	}
	if cfg.File.SubstDepth != 5 {
		t.Errorf("SubstDepth = %d", cfg.File.SubstDepth)
	}
	if len(cfg.File.DisabledCategories) != 1 || cfg.File.DisabledCategories[0] != "network" {
		t.Errorf("DisabledCategories = %v", cfg.File.DisabledCategories)
	}
	if len(cfg.File.Patterns) != 1 || cfg.File.Patterns[0].ID != "corp-deploy" {
		t.Errorf("Patterns = %+v", cfg.File.Patterns)
	}
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile),
		[]byte("log_path: /from/file.jsonl\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", "/from/flag.jsonl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogPath != "/from/flag.jsonl" {
		t.Errorf("LogPath = %q, flag should win", cfg.LogPath)
	}
}

func TestLoad_ExplicitMissingPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := Load("/no/such/config.yaml", ""); err == nil {
		t.Error("explicit missing config path should fail")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(path, []byte("safety_level: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, ""); err == nil {
		t.Error("malformed YAML should fail")
	}
}
