package views

import (
	"strings"

	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

// RiskClass maps a risk level to its colour class.
func RiskClass(r domain.RiskScore) string {
	switch r {
	case domain.RiskHigh:
		return "risk-high"
	case domain.RiskMedium:
		return "risk-medium"
	default:
		return "risk-low"
	}
}

// RiskIcon maps a risk level to its icon name.
func RiskIcon(r domain.RiskScore) string {
	switch r {
	case domain.RiskHigh:
		return "alert-octagon"
	case domain.RiskMedium:
		return "alert-triangle"
	default:
		return "shield-check"
	}
}

// RiskLabel is the uppercase banner text, e.g. "HIGH RISK".
func RiskLabel(r domain.RiskScore) string {
	return strings.ToUpper(string(r)) + " RISK"
}

// Tab describes one input mode tab.
type Tab struct {
	Mode   domain.InputMode
	Label  string
	Active bool
}

func tabs(active domain.InputMode) []Tab {
	return []Tab{
		{Mode: domain.ModeText, Label: "Text / SMS", Active: active == domain.ModeText},
		{Mode: domain.ModeImage, Label: "Screenshot", Active: active == domain.ModeImage},
		{Mode: domain.ModeLink, Label: "Website Link", Active: active == domain.ModeLink},
	}
}
