package analysis

import "strings"

// NormalizeRiskScore maps any model wording onto the three levels. Exact
// literals pass through; otherwise the lowercased value is searched for
// "high" then "medium", and everything else becomes Low.
func NormalizeRiskScore(s string) RiskScore {
	switch RiskScore(s) {
	case RiskHigh, RiskMedium, RiskLow:
		return RiskScore(s)
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "high"):
		return RiskHigh
	case strings.Contains(lower, "medium"):
		return RiskMedium
	default:
		return RiskLow
	}
}
