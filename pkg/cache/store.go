package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kernel/walletcache/pkg/wallets"
)

// ArtifactNotFoundError is returned when a cache artifact has not been written
// yet, which means setup has not run for the wallet.
type ArtifactNotFoundError struct {
	Wallet wallets.ID
	File   string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("❌ %s not found. Run setup script first.", e.File)
}

// Store reads and writes artifacts under a cache root.
type Store struct {
	Layout
}

// NewStore returns a store rooted at root.
func NewStore(root string) *Store {
	return &Store{Layout: Layout{Root: root}}
}

// DefaultStore returns a store rooted at Root().
func DefaultStore() (*Store, error) {
	root, err := Root()
	if err != nil {
		return nil, err
	}
	return NewStore(root), nil
}

// ExtensionID returns the cached Chrome extension id of a wallet.
func (s *Store) ExtensionID(id wallets.ID) (string, error) {
	v, err := s.read(id, ExtensionIDFile)
	if err != nil {
		return "", fmt.Errorf("Failed to get %s extension ID from cache: %w", id, err)
	}
	return v, nil
}

// ExtensionPath returns the cached unpacked extension path of a wallet.
func (s *Store) ExtensionPath(id wallets.ID) (string, error) {
	v, err := s.read(id, ExtensionPathFile)
	if err != nil {
		return "", fmt.Errorf("Failed to get %s extension path from cache: %w", id, err)
	}
	return v, nil
}

// Password returns the cached unlock password of a wallet.
func (s *Store) Password(id wallets.ID) (string, error) {
	v, err := s.read(id, PasswordFile)
	if err != nil {
		return "", fmt.Errorf("Failed to get %s password from cache: %w", id, err)
	}
	return v, nil
}

// HasExtensionID reports whether the extension id artifact exists. Its
// presence marks the entry's artifacts as committed.
func (s *Store) HasExtensionID(id wallets.ID) bool {
	_, err := os.Stat(s.ArtifactPath(id, ExtensionIDFile))
	return err == nil
}

func (s *Store) read(id wallets.ID, file string) (string, error) {
	data, err := os.ReadFile(s.ArtifactPath(id, file))
	if errors.Is(err, fs.ErrNotExist) {
		return "", &ArtifactNotFoundError{Wallet: id, File: file}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", &ArtifactNotFoundError{Wallet: id, File: file}
	}
	return v, nil
}

// Artifacts are the values committed to a cache entry after a successful
// extension launch.
type Artifacts struct {
	ExtensionID   string
	ExtensionPath string
	Password      string
}

// Commit writes the password, the extension path and then the extension id.
// Each file is replaced atomically, so readers never observe a partial value,
// and the id is written last so its presence implies the other two exist.
func (s *Store) Commit(id wallets.ID, a Artifacts) error {
	if a.ExtensionID == "" {
		return fmt.Errorf("cannot commit %s cache: extension id is empty", id)
	}
	if err := os.MkdirAll(s.EntryDir(id), 0755); err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	writes := []struct{ file, value string }{
		{PasswordFile, a.Password},
		{ExtensionPathFile, a.ExtensionPath},
		{ExtensionIDFile, a.ExtensionID},
	}
	for _, w := range writes {
		if err := writeFileAtomic(s.ArtifactPath(id, w.file), []byte(w.value)); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.file, err)
		}
	}
	return nil
}

// Remove deletes a wallet's whole cache entry.
func (s *Store) Remove(id wallets.ID) error {
	if err := os.RemoveAll(s.EntryDir(id)); err != nil {
		return fmt.Errorf("failed to remove %s cache: %w", id, err)
	}
	return nil
}

// EntryStatus summarises what a cache entry currently holds.
type EntryStatus struct {
	Wallet        wallets.ID `json:"wallet"`
	Exists        bool       `json:"exists"`
	Extension     bool       `json:"extension"`
	Profiles      []string   `json:"profiles"`
	ExtensionID   string     `json:"extension_id,omitempty"`
	ExtensionPath string     `json:"extension_path,omitempty"`
}

// Status inspects the cache entry of a wallet without failing on missing
// artifacts.
func (s *Store) Status(id wallets.ID) (EntryStatus, error) {
	st := EntryStatus{Wallet: id}
	entries, err := os.ReadDir(s.EntryDir(id))
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read %s cache: %w", id, err)
	}
	st.Exists = true

	extDir := filepath.Base(s.ExtensionDir(id))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.Name() == extDir {
			st.Extension = true
			continue
		}
		st.Profiles = append(st.Profiles, e.Name())
	}
	if v, err := s.read(id, ExtensionIDFile); err == nil {
		st.ExtensionID = v
	}
	if v, err := s.read(id, ExtensionPathFile); err == nil {
		st.ExtensionPath = v
	}
	return st, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
