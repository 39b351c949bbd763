package cmd

import "github.com/pterm/pterm"

// PrintTableNoPad renders rows as an unboxed table, the first row as header
// when hasHeader is set.
func PrintTableNoPad(rows pterm.TableData, hasHeader bool) {
	t := pterm.DefaultTable.WithData(rows).WithBoxed(false)
	if hasHeader {
		t = t.WithHasHeader()
	}
	_ = t.Render()
}
