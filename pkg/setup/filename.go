package setup

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/kernel/walletcache/pkg/wallets"
)

// ScriptExtensions mark setup files whose setup is registered in Go under the
// file stem with Register. Their content is not read.
var ScriptExtensions = []string{"ts", "js", "mjs"}

// DefinitionExtensions are the declarative setup file formats.
var DefinitionExtensions = []string{"yaml", "yml", "toml", "json"}

// Extensions are all setup file extensions the resolver matches.
var Extensions = append(append([]string{}, ScriptExtensions...), DefinitionExtensions...)

// Pattern describes the setup file names the resolver looks for. It is used in
// error messages.
var Pattern = "**/*.setup.{" + strings.Join(Extensions, ",") + "}"

var filenameRe = regexp.MustCompile(`^([a-z0-9_-]+)\.setup\.(` + strings.Join(Extensions, "|") + `)$`)

// InvalidSetupFilenameError is returned for a setup file whose name does not
// follow <wallet>[-<variant>].setup.<ext> or names an unsupported wallet.
type InvalidSetupFilenameError struct {
	Name   string
	Reason string
}

func (e *InvalidSetupFilenameError) Error() string {
	msg := fmt.Sprintf("Invalid wallet setup filename: %s (expected \"<name>[-variant].setup.{%s}\")", e.Name, strings.Join(Extensions, ","))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Filename is the metadata carried by a setup file name.
type Filename struct {
	// Stem is the name without the .setup.<ext> suffix, e.g. "metamask-two".
	Stem string

	Wallet wallets.ID

	// Variant is everything after the first '-', empty for the default setup.
	Variant string

	Ext string
}

// ParseFilename parses the base name of a setup file.
func ParseFilename(name string) (Filename, error) {
	base := filepath.Base(name)
	m := filenameRe.FindStringSubmatch(base)
	if m == nil {
		return Filename{}, &InvalidSetupFilenameError{Name: base}
	}
	stem := m[1]
	wallet, variant, _ := strings.Cut(stem, "-")
	if !wallets.IsSupported(wallet) {
		return Filename{}, &InvalidSetupFilenameError{
			Name:   base,
			Reason: fmt.Sprintf("unsupported wallet %q", wallet),
		}
	}
	return Filename{
		Stem:    stem,
		Wallet:  wallets.ID(wallet),
		Variant: variant,
		Ext:     m[2],
	}, nil
}

// IsScript reports whether the file only names a setup registered in Go.
func (f Filename) IsScript() bool {
	return lo.Contains(ScriptExtensions, f.Ext)
}

// ExtractWalletName returns the wallet identifier encoded in a setup file name.
func ExtractWalletName(name string) (wallets.ID, error) {
	f, err := ParseFilename(name)
	if err != nil {
		return "", err
	}
	return f.Wallet, nil
}

// isSetupCandidate reports whether a base name looks like a setup file, valid
// or not. Candidates that fail ParseFilename are reported as errors rather
// than silently ignored.
func isSetupCandidate(base string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(base, ".setup."+ext) {
			return true
		}
	}
	return false
}
