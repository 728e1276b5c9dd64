// Package risk defines the risk/decision vocabulary shared by every layer of
// the validation engine: the totally ordered RiskLevel scale, the safety
// levels an operator can configure, and the pure policy table that maps a
// risk level through a safety level to an allow/confirm/block decision.
package risk

import "fmt"

// RiskLevel classifies how dangerous a command is. Levels are totally
// ordered: Safe < Moderate < High < Critical. Aggregation always takes the
// maximum across findings — one Critical finding makes the whole command
// Critical no matter how many safe signals coexist.
type RiskLevel int

const (
	Safe RiskLevel = iota
	Moderate
	High
	Critical
)

func (r RiskLevel) String() string {
	switch r {
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// Max returns the higher of two risk levels.
func Max(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

// Decision is the outcome of mapping a risk level through a safety level.
type Decision string

const (
	Allow   Decision = "ALLOW"
	Confirm Decision = "CONFIRM"
	Block   Decision = "BLOCK"
)

// SafetyLevel is the operator-configured strictness profile.
type SafetyLevel string

const (
	Strict          SafetyLevel = "strict"
	ModeratePolicy  SafetyLevel = "moderate"
	Permissive      SafetyLevel = "permissive"
	DefaultSafety               = ModeratePolicy
)

// ParseLevel validates a risk level name from configuration.
func ParseLevel(s string) (RiskLevel, error) {
	switch s {
	case "safe":
		return Safe, nil
	case "moderate":
		return Moderate, nil
	case "high":
		return High, nil
	case "critical":
		return Critical, nil
	}
	return Safe, fmt.Errorf("unknown risk level %q (want safe, moderate, high, or critical)", s)
}

// ParseSafetyLevel validates a configuration string.
func ParseSafetyLevel(s string) (SafetyLevel, error) {
	switch SafetyLevel(s) {
	case Strict, ModeratePolicy, Permissive:
		return SafetyLevel(s), nil
	case "":
		return DefaultSafety, nil
	}
	return "", fmt.Errorf("unknown safety level %q (want strict, moderate, or permissive)", s)
}

// thresholds defines, per safety level, the minimum risk that requires
// confirmation and the minimum risk that is blocked outright. Block is
// checked first, so a level at or above both thresholds blocks.
var thresholds = map[SafetyLevel]struct{ confirmAt, blockAt RiskLevel }{
	Strict:         {confirmAt: Moderate, blockAt: High},
	ModeratePolicy: {confirmAt: High, blockAt: Critical},
	// Permissive auto-blocks only Critical; High and below run without
	// confirmation.
	Permissive: {confirmAt: Critical, blockAt: Critical},
}

// Decide maps (risk, safety level) to a decision. It is a pure, total
// function: unknown safety levels fall back to the moderate profile rather
// than failing, because a policy lookup must never prevent a verdict.
func Decide(r RiskLevel, level SafetyLevel) Decision {
	t, ok := thresholds[level]
	if !ok {
		t = thresholds[ModeratePolicy]
	}
	if r >= t.blockAt {
		return Block
	}
	if r >= t.confirmAt {
		return Confirm
	}
	return Allow
}
