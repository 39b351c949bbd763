// Package cache reads and writes the per-wallet cache entries produced by the
// setup-wallet command.
//
// Layout of one entry:
//
//	<root>/<wallet>/
//	  <wallet>-extension/   unpacked extension, manifest.json at its root
//	  <profile>/            persistent browser profile ("wallet-data" by default)
//	  extension-id.txt
//	  extension-path.txt
//	  password.txt
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kernel/walletcache/pkg/wallets"
)

const (
	// RootEnv overrides the cache root directory.
	RootEnv = "WALLET_CACHE_DIR"

	// DefaultRootName is the cache directory created under the working directory.
	DefaultRootName = ".wallet-cache"

	// DefaultProfile is the profile directory used when a setup file names none.
	DefaultProfile = "wallet-data"

	ExtensionIDFile   = "extension-id.txt"
	ExtensionPathFile = "extension-path.txt"
	PasswordFile      = "password.txt"
)

// Root returns the cache root directory. WALLET_CACHE_DIR wins over the
// default of .wallet-cache in the working directory.
func Root() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(RootEnv)); dir != "" {
		return filepath.Abs(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, DefaultRootName), nil
}

// Layout resolves paths inside a cache root.
type Layout struct {
	Root string
}

// EntryDir is the cache entry directory for a wallet.
func (l Layout) EntryDir(id wallets.ID) string {
	return filepath.Join(l.Root, string(id))
}

// ExtensionDir is where the unpacked extension lives.
func (l Layout) ExtensionDir(id wallets.ID) string {
	return filepath.Join(l.EntryDir(id), string(id)+"-extension")
}

// ArchivePath is the transient download location of the extension archive.
func (l Layout) ArchivePath(id wallets.ID) string {
	return filepath.Join(l.EntryDir(id), string(id)+"-extension.zip")
}

// ProfileDir is the browser profile directory; an empty profile selects
// DefaultProfile.
func (l Layout) ProfileDir(id wallets.ID, profile string) string {
	if profile == "" {
		profile = DefaultProfile
	}
	return filepath.Join(l.EntryDir(id), profile)
}

// InvalidProfileNameError is returned for a profile name that would not be a
// plain directory of its own inside the cache entry.
type InvalidProfileNameError struct {
	Wallet wallets.ID
	Name   string
	Reason string
}

func (e *InvalidProfileNameError) Error() string {
	return fmt.Sprintf("invalid %s profile name %q: %s", e.Wallet, e.Name, e.Reason)
}

// ValidateProfileName rejects profile names that leave the cache entry or
// collide with the extension directory, its archive or an artifact file. An
// empty name selects DefaultProfile and is valid.
func (l Layout) ValidateProfileName(id wallets.ID, name string) error {
	invalid := func(reason string) error {
		return &InvalidProfileNameError{Wallet: id, Name: name, Reason: reason}
	}
	switch {
	case name == "":
		return nil
	case name == "." || name == "..":
		return invalid("not a directory name")
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return invalid("must not contain a path separator")
	case strings.HasPrefix(name, "."):
		return invalid("must not start with a dot")
	}
	reserved := []string{
		filepath.Base(l.ExtensionDir(id)),
		filepath.Base(l.ArchivePath(id)),
		ExtensionIDFile,
		ExtensionPathFile,
		PasswordFile,
	}
	for _, r := range reserved {
		if strings.EqualFold(name, r) {
			return invalid("collides with " + r)
		}
	}
	return nil
}

// ArtifactPath is the path of one of the artifact files.
func (l Layout) ArtifactPath(id wallets.ID, file string) string {
	return filepath.Join(l.EntryDir(id), file)
}
