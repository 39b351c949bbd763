package util

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// OrDash returns the string if non-empty, otherwise returns "-".
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// JoinOrDash joins the non-empty items with ", ", or returns "-" when none
// are left.
func JoinOrDash(items ...string) string {
	kept := lo.Compact(items)
	if len(kept) == 0 {
		return "-"
	}
	return strings.Join(kept, ", ")
}

// YesNo renders a boolean for table output.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatBytes formats a byte count with binary units, e.g. "1.5 MB".
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
