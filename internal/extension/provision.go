// Package extension provisions unpacked wallet extensions into the cache.
package extension

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/samber/lo"

	"github.com/kernel/walletcache/internal/download"
	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/util"
	"github.com/kernel/walletcache/pkg/wallets"
)

// Downloader fetches url into dest.
type Downloader interface {
	File(ctx context.Context, url, dest string) error
}

// Provisioner makes sure a wallet's unpacked extension exists in its cache
// entry.
type Provisioner struct {
	Layout     cache.Layout
	Downloader Downloader
}

// NewProvisioner returns a provisioner for the cache at layout using the
// default download client.
func NewProvisioner(layout cache.Layout) *Provisioner {
	return &Provisioner{Layout: layout, Downloader: download.NewClient()}
}

// Provision returns the absolute path of the unpacked extension for id,
// downloading and extracting it from downloadURL when it is not cached yet.
// force discards the whole cache entry first.
func (p *Provisioner) Provision(ctx context.Context, id wallets.ID, downloadURL string, force bool) (string, error) {
	entryDir := p.Layout.EntryDir(id)
	if force {
		if err := os.RemoveAll(entryDir); err != nil {
			return "", fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	if err := os.MkdirAll(entryDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache entry: %w", err)
	}

	extDir, err := filepath.Abs(p.Layout.ExtensionDir(id))
	if err != nil {
		return "", fmt.Errorf("failed to resolve extension path: %w", err)
	}

	if _, err := os.Stat(extDir); errors.Is(err, fs.ErrNotExist) {
		if err := p.fetch(ctx, id, downloadURL, extDir); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check extension directory: %w", err)
	}

	m, err := ReadManifest(id, extDir)
	if err != nil {
		return "", err
	}
	if v, err := m.SemVer(); err == nil {
		pterm.Info.Printf("Using %s %s\n", id, v)
	} else {
		pterm.Info.Printf("Using %s %s\n", id, m.Version)
	}
	return extDir, nil
}

// fetch downloads the archive, unpacks it next to extDir and moves the
// extension root into place, so extDir only ever appears complete.
func (p *Provisioner) fetch(ctx context.Context, id wallets.ID, downloadURL, extDir string) error {
	archive := p.Layout.ArchivePath(id)
	pterm.Info.Printf("Downloading %s extension...\n", id)
	if err := p.Downloader.File(ctx, downloadURL, archive); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(filepath.Dir(extDir), "."+filepath.Base(extDir)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := util.Unzip(archive, staging); err != nil {
		return &InvalidExtensionArchiveError{Wallet: id, Reason: fmt.Sprintf("failed to extract archive: %v", err)}
	}

	root, err := extensionRoot(staging)
	if err != nil {
		return err
	}
	if _, err := ReadManifest(id, root); err != nil {
		return err
	}
	if err := os.Rename(root, extDir); err != nil {
		return fmt.Errorf("failed to move extension into place: %w", err)
	}
	if err := os.Remove(archive); err != nil {
		pterm.Warning.Printf("Failed to remove %s: %v\n", archive, err)
	}
	return nil
}

// extensionRoot returns dir, or its only subdirectory when the archive wraps
// the extension in a single top-level folder.
func extensionRoot(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted archive: %w", err)
	}
	entries = lo.Filter(entries, func(e os.DirEntry, _ int) bool { return e.Name() != "__MACOSX" })
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
