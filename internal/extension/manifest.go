package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/kernel/walletcache/pkg/wallets"
)

// ManifestFile must sit at the root of an unpacked extension.
const ManifestFile = "manifest.json"

// InvalidExtensionArchiveError is returned when an extracted archive is not a
// loadable extension.
type InvalidExtensionArchiveError struct {
	Wallet wallets.ID
	Reason string
}

func (e *InvalidExtensionArchiveError) Error() string {
	return fmt.Sprintf("(%s) Invalid extension: %s", e.Wallet, e.Reason)
}

// Manifest is the subset of manifest.json the provisioner checks.
type Manifest struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ManifestVersion int    `json:"manifest_version"`

	// Key is the base64 public key some packed extensions keep; it fixes the
	// extension id regardless of the install path.
	Key string `json:"key,omitempty"`
}

// SemVer parses the extension version. Chrome versions have up to four
// dot-separated numbers, so a parse failure is not an error for the caller.
func (m Manifest) SemVer() (*semver.Version, error) {
	return semver.NewVersion(m.Version)
}

// ReadManifest loads and validates manifest.json from an unpacked extension.
func ReadManifest(id wallets.ID, dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, &InvalidExtensionArchiveError{Wallet: id, Reason: "manifest.json not found"}
	}
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, &InvalidExtensionArchiveError{Wallet: id, Reason: fmt.Sprintf("manifest.json is not valid JSON: %v", err)}
	}
	if m.ManifestVersion == 0 {
		return m, &InvalidExtensionArchiveError{Wallet: id, Reason: "manifest.json has no manifest_version"}
	}
	return m, nil
}
