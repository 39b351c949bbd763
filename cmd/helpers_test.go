package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/pterm/pterm"
)

// outBuf collects pterm output for the running test.
var outBuf bytes.Buffer

// setupStdoutCapture sends the pterm printers used by the commands to outBuf
// until the test ends.
func setupStdoutCapture(t *testing.T) {
	t.Helper()
	outBuf.Reset()

	info, success, warning, errPrinter, debug := pterm.Info, pterm.Success, pterm.Warning, pterm.Error, pterm.Debug
	table := pterm.DefaultTable

	pterm.SetDefaultOutput(&outBuf)
	pterm.DisableStyling()
	pterm.Info = *info.WithWriter(&outBuf)
	pterm.Success = *success.WithWriter(&outBuf)
	pterm.Warning = *warning.WithWriter(&outBuf)
	pterm.Error = *errPrinter.WithWriter(&outBuf)
	pterm.Debug = *debug.WithWriter(&outBuf)
	pterm.DefaultTable = *table.WithWriter(&outBuf)

	t.Cleanup(func() {
		pterm.Info, pterm.Success, pterm.Warning, pterm.Error, pterm.Debug = info, success, warning, errPrinter, debug
		pterm.DefaultTable = table
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
}
