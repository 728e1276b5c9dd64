package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmdguard/cmdguard/internal/config"
	"github.com/cmdguard/cmdguard/internal/logger"
)

var (
	logFilterDecision string
	logFilterRisk     string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the cmdguard audit log with filtering and summary options.

Examples:
  cmdguard log                        # Show all entries
  cmdguard log --last 20              # Show last 20 entries
  cmdguard log --decision BLOCK       # Show only blocked commands
  cmdguard log --risk critical        # Show only critical-risk entries
  cmdguard log --summary              # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter by decision (ALLOW, CONFIRM, BLOCK)")
	logCmd.Flags().StringVar(&logFilterRisk, "risk", "", "Filter by risk level (safe, moderate, high, critical)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	events, err := readAuditLog(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events)

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printLogSummary(events)
		return nil
	}

	printEvents(filtered)
	return nil
}

func readAuditLog(path string) ([]logger.AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.AuditEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.AuditEvent) []logger.AuditEvent {
	if logFilterDecision == "" && logFilterRisk == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if logFilterDecision != "" && !strings.EqualFold(e.Decision, logFilterDecision) {
			continue
		}
		if logFilterRisk != "" && !strings.EqualFold(e.Risk, logFilterRisk) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(events []logger.AuditEvent) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)
		icon := decisionIcon(e.Decision)
		degraded := ""
		if e.Degraded {
			degraded = " [DEGRADED]"
		}

		fmt.Printf("%s %s [%s] %s%s\n", icon, ts, e.Risk, e.Command, degraded)

		if len(e.RuleIDs) > 0 {
			fmt.Printf("     Rules: %s\n", strings.Join(e.RuleIDs, ", "))
		}
		if e.UserAction != "" {
			fmt.Printf("     User: %s\n", e.UserAction)
		}
		if e.Error != "" {
			fmt.Printf("     Error: %s\n", e.Error)
		}
		fmt.Println()
	}
}

func printLogSummary(all []logger.AuditEvent) {
	counts := map[string]int{}
	degradedCount := 0

	for _, e := range all {
		counts[e.Decision]++
		if e.Degraded {
			degradedCount++
		}
	}

	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("  cmdguard Audit Summary")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("  Total events: %d\n", len(all))
	fmt.Printf("  ALLOW:        %d\n", counts["ALLOW"])
	fmt.Printf("  CONFIRM:      %d\n", counts["CONFIRM"])
	fmt.Printf("  BLOCK:        %d\n", counts["BLOCK"])
	fmt.Printf("  Degraded:     %d\n", degradedCount)
	fmt.Println("═══════════════════════════════════════════")

	if len(all) > 0 {
		fmt.Printf("  First event:  %s\n", formatTimestamp(all[0].Timestamp))
		fmt.Printf("  Last event:   %s\n", formatTimestamp(all[len(all)-1].Timestamp))
	}

	blocked := []logger.AuditEvent{}
	for _, e := range all {
		if e.Decision == "BLOCK" {
			blocked = append(blocked, e)
		}
	}
	if len(blocked) > 0 {
		fmt.Println()
		fmt.Println("  Blocked commands:")
		limit := len(blocked)
		if limit > 10 {
			limit = 10
		}
		for _, e := range blocked[len(blocked)-limit:] {
			fmt.Printf("    %s %s\n", formatTimestamp(e.Timestamp), e.Command)
		}
	}

	fmt.Println()
}

func decisionIcon(decision string) string {
	switch decision {
	case "BLOCK":
		return "\xf0\x9f\x9b\x91" // stop sign
	case "CONFIRM":
		return "\xf0\x9f\x94\x8d" // magnifying glass
	case "ALLOW":
		return "\xe2\x9c\x85" // check mark
	default:
		return "\xe2\x9d\x93" // question mark
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
