// Package cli wires the validation engine into the cmdguard command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmdguard/cmdguard/internal/config"
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/safety"
)

var (
	configPath string
	logPath    string
	levelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "cmdguard",
	Short: "cmdguard - Safety validation for generated shell commands",
	Long: `cmdguard validates shell commands before they run, catching destructive
operations, privilege escalation, piped remote code, and obfuscated payloads.
It is built for commands produced by an NL-to-command generator, where the
user never typed the command and may not read it carefully.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.cmdguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.cmdguard/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "level", "", "Safety level: strict, moderate, or permissive (default: moderate)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadSetup resolves config, safety level, and a configured engine in one
// step. The --level flag wins over the config file.
func loadSetup() (*config.Config, risk.SafetyLevel, *safety.Engine, error) {
	cfg, err := config.Load(configPath, logPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}

	levelName := levelFlag
	if levelName == "" {
		levelName = cfg.File.SafetyLevel
	}
	level, err := risk.ParseSafetyLevel(levelName)
	if err != nil {
		return nil, "", nil, err
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, level, eng, nil
}

func buildEngine(cfg *config.Config) (*safety.Engine, error) {
	var opts []safety.Option

	if cfg.File.SubstDepth > 0 {
		opts = append(opts, safety.WithSubstDepth(cfg.File.SubstDepth))
	}
	if cfg.File.DisableUnicodeScan {
		opts = append(opts, safety.WithoutUnicodeScan())
	}

	for _, name := range cfg.File.DisabledCategories {
		cat, err := safety.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, safety.WithCategoryDisabled(cat))
	}

	if len(cfg.File.Patterns) > 0 {
		extra := make([]safety.Pattern, 0, len(cfg.File.Patterns))
		for _, pc := range cfg.File.Patterns {
			level, err := risk.ParseLevel(pc.Risk)
			if err != nil {
				return nil, fmt.Errorf("pattern %s: %w", pc.ID, err)
			}
			cat, err := safety.ParseCategory(pc.Category)
			if err != nil {
				return nil, fmt.Errorf("pattern %s: %w", pc.ID, err)
			}
			p, err := safety.CompilePattern(pc.ID, pc.Regex, level, cat, pc.Description, pc.Suggestion)
			if err != nil {
				return nil, err
			}
			extra = append(extra, p)
		}
		opts = append(opts, safety.WithExtraPatterns(extra))
	}

	return safety.NewEngine(opts...), nil
}
