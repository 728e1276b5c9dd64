package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cmdguard/cmdguard/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cmdguard status — config, safety level, audit log",
	Long: `Check the active configuration: which config file is loaded, the
effective safety level, custom patterns, and whether the audit log exists.

  cmdguard status`,
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, level, _, err := loadSetup()
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("  cmdguard Status")
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Printf("  Binary:       %s (%s)\n", binPath, Version)
	fmt.Printf("  Config dir:   %s\n", cfg.ConfigDir)
	fmt.Println()

	fmt.Println("─── Configuration ─────────────────────────────────────")
	cfgFile := configPath
	if cfgFile == "" {
		cfgFile = filepath.Join(cfg.ConfigDir, config.DefaultConfigFile)
	}
	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Printf("  ✅ Config file: %s\n", cfgFile)
	} else {
		fmt.Printf("  ⬚  Config file: using built-in defaults (no %s)\n", cfgFile)
	}
	fmt.Printf("  Safety level:    %s\n", level)
	fmt.Printf("  Custom patterns: %d\n", len(cfg.File.Patterns))
	if len(cfg.File.DisabledCategories) > 0 {
		fmt.Printf("  ⚠  Disabled categories: %v\n", cfg.File.DisabledCategories)
	}
	if cfg.File.DisableUnicodeScan {
		fmt.Println("  ⚠  Unicode scan disabled")
	}
	fmt.Println()

	fmt.Println("─── Audit Log ─────────────────────────────────────────")
	checkAuditLog(cfg.LogPath)
	fmt.Println()

	return nil
}

func checkAuditLog(path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("  ⬚  %s (not yet created — will start on first event)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Printf("  ✅ %s (<1 KB)\n", path)
	} else {
		fmt.Printf("  ✅ %s (%d KB)\n", path, sizeKB)
	}
}
