package mysql

import "strings"

// stringOrDash returns "-" for blank values so NOT NULL columns stay filled
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
