package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdguard/cmdguard/internal/approval"
	"github.com/cmdguard/cmdguard/internal/logger"
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/safety"
)

var (
	checkJSON  bool
	checkQuiet bool
)

var checkCmd = &cobra.Command{
	Use:   "check [command...]",
	Short: "Validate a shell command and report the verdict",
	Long: `Validate one shell command against the danger rules and print a
diagnostic report. The command is never executed.

Exit status is 0 when the command is allowed (or confirmed interactively),
and 1 when it is blocked or denied.

  cmdguard check 'rm -rf /tmp/build'
  cmdguard check -- git push --force origin main`,
	Args: cobra.MinimumNArgs(1),
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the full result as JSON")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Print only the one-line summary")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")

	cfg, level, eng, err := loadSetup()
	if err != nil {
		return err
	}

	res := eng.Validate(command, level)

	switch {
	case checkJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	case checkQuiet:
		fmt.Println(summaryLine(res))
	default:
		fmt.Print(formatReport(safety.Render(res)))
	}

	userAction := ""
	approved := res.Decision == risk.Allow
	if res.Decision == risk.Confirm {
		descs := make([]string, 0, len(res.Findings))
		for _, f := range res.Findings {
			descs = append(descs, f.Description)
		}
		answer := approval.Ask(approval.Prompt{
			Command:  command,
			Risk:     res.Risk.String(),
			Findings: descs,
		})
		approved = answer.Approved
		userAction = answer.UserAction
	}

	logVerdict(cfg.LogPath, command, level, res, userAction)

	if !approved {
		if res.Decision == risk.Block {
			return fmt.Errorf("command blocked (risk: %s)", res.Risk)
		}
		return fmt.Errorf("command denied")
	}
	return nil
}

// logVerdict appends to the audit log. Auditing is best-effort: a logging
// failure is reported but never changes the verdict.
func logVerdict(path, command string, level risk.SafetyLevel, res *safety.ValidationResult, userAction string) {
	lg, err := logger.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
		return
	}
	defer lg.Close()

	ruleIDs := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		ruleIDs = append(ruleIDs, f.RuleID)
	}

	event := logger.AuditEvent{
		Command:     command,
		SafetyLevel: string(level),
		Decision:    string(res.Decision),
		Risk:        res.Risk.String(),
		RuleIDs:     ruleIDs,
		Degraded:    res.Degraded,
		UserAction:  userAction,
		Error:       res.ParseErr,
	}
	if err := lg.Log(event); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log write failed: %v\n", err)
	}
}
