package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernel/walletcache/pkg/wallets"
)

func writeArtifact(t *testing.T, s *Store, id wallets.ID, file, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(s.EntryDir(id), 0755))
	require.NoError(t, os.WriteFile(s.ArtifactPath(id, file), []byte(content), 0644))
}

func TestStore_ExtensionID(t *testing.T) {
	s := NewStore(t.TempDir())
	writeArtifact(t, s, wallets.MetaMask, ExtensionIDFile, "nacmplfodgmlifcimbokhbinifgmgceh")

	id, err := s.ExtensionID(wallets.MetaMask)
	require.NoError(t, err)
	assert.Equal(t, "nacmplfodgmlifcimbokhbinifgmgceh", id)
}

func TestStore_ExtensionID_Missing(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.ExtensionID(wallets.Petra)
	require.Error(t, err)

	var notFound *ArtifactNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, wallets.Petra, notFound.Wallet)
	assert.Equal(t, ExtensionIDFile, notFound.File)
	assert.Contains(t, err.Error(), "Failed to get petra extension ID from cache")
	assert.Contains(t, err.Error(), "extension-id.txt not found. Run setup script first.")
}

func TestStore_ExtensionPath_TrimsAndRejectsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	writeArtifact(t, s, wallets.Phantom, ExtensionPathFile, "  /tmp/phantom-extension\n")
	p, err := s.ExtensionPath(wallets.Phantom)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/phantom-extension", p)

	writeArtifact(t, s, wallets.Phantom, ExtensionPathFile, " \n\t")
	_, err = s.ExtensionPath(wallets.Phantom)
	var notFound *ArtifactNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestStore_ReadsAreNotMemoised(t *testing.T) {
	s := NewStore(t.TempDir())

	writeArtifact(t, s, wallets.Solflare, PasswordFile, "first")
	pw, err := s.Password(wallets.Solflare)
	require.NoError(t, err)
	assert.Equal(t, "first", pw)

	writeArtifact(t, s, wallets.Solflare, PasswordFile, "second")
	pw, err = s.Password(wallets.Solflare)
	require.NoError(t, err)
	assert.Equal(t, "second", pw)
}

func TestStore_Commit(t *testing.T) {
	s := NewStore(t.TempDir())

	err := s.Commit(wallets.MetaMask, Artifacts{
		ExtensionID:   "abcdefghijklmnopabcdefghijklmnop",
		ExtensionPath: "/cache/metamask/metamask-extension",
		Password:      "Tester@1234",
	})
	require.NoError(t, err)

	assert.True(t, s.HasExtensionID(wallets.MetaMask))

	id, err := s.ExtensionID(wallets.MetaMask)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopabcdefghijklmnop", id)

	p, err := s.ExtensionPath(wallets.MetaMask)
	require.NoError(t, err)
	assert.Equal(t, "/cache/metamask/metamask-extension", p)

	pw, err := s.Password(wallets.MetaMask)
	require.NoError(t, err)
	assert.Equal(t, "Tester@1234", pw)

	// No temp files are left behind.
	entries, err := os.ReadDir(s.EntryDir(wallets.MetaMask))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStore_Commit_RequiresID(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Commit(wallets.Petra, Artifacts{Password: "pw"})
	require.Error(t, err)
	assert.False(t, s.HasExtensionID(wallets.Petra))
	_, statErr := os.Stat(s.ArtifactPath(wallets.Petra, PasswordFile))
	assert.True(t, os.IsNotExist(statErr), "nothing should be written without an id")
}

func TestStore_Status(t *testing.T) {
	s := NewStore(t.TempDir())

	st, err := s.Status(wallets.Petra)
	require.NoError(t, err)
	assert.False(t, st.Exists)

	require.NoError(t, os.MkdirAll(s.ExtensionDir(wallets.Petra), 0755))
	require.NoError(t, os.MkdirAll(s.ProfileDir(wallets.Petra, ""), 0755))
	require.NoError(t, os.MkdirAll(s.ProfileDir(wallets.Petra, "profile-two"), 0755))
	require.NoError(t, s.Commit(wallets.Petra, Artifacts{ExtensionID: "id", ExtensionPath: "/p", Password: "pw"}))

	st, err = s.Status(wallets.Petra)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.True(t, st.Extension)
	assert.ElementsMatch(t, []string{"wallet-data", "profile-two"}, st.Profiles)
	assert.Equal(t, "id", st.ExtensionID)
	assert.Equal(t, "/p", st.ExtensionPath)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(t.TempDir())
	writeArtifact(t, s, wallets.MetaMask, PasswordFile, "pw")

	require.NoError(t, s.Remove(wallets.MetaMask))
	_, err := os.Stat(s.EntryDir(wallets.MetaMask))
	assert.True(t, os.IsNotExist(err))

	// Removing a missing entry is not an error.
	assert.NoError(t, s.Remove(wallets.MetaMask))
}

func TestLayout(t *testing.T) {
	l := Layout{Root: "/c"}
	assert.Equal(t, filepath.Join("/c", "petra"), l.EntryDir(wallets.Petra))
	assert.Equal(t, filepath.Join("/c", "petra", "petra-extension"), l.ExtensionDir(wallets.Petra))
	assert.Equal(t, filepath.Join("/c", "petra", "petra-extension.zip"), l.ArchivePath(wallets.Petra))
	assert.Equal(t, filepath.Join("/c", "petra", "wallet-data"), l.ProfileDir(wallets.Petra, ""))
	assert.Equal(t, filepath.Join("/c", "petra", "p2"), l.ProfileDir(wallets.Petra, "p2"))
}

func TestValidateProfileName(t *testing.T) {
	l := Layout{Root: "/c"}
	tests := []struct {
		name   string
		reason string
	}{
		{"", ""},
		{"profile-two", ""},
		{"..", "not a directory name"},
		{"a/b", "must not contain a path separator"},
		{`a\b`, "must not contain a path separator"},
		{"../escape", "must not contain a path separator"},
		{".hidden", "must not start with a dot"},
		{"metamask-extension", "collides with metamask-extension"},
		{"MetaMask-Extension", "collides with metamask-extension"},
		{"metamask-extension.zip", "collides with metamask-extension.zip"},
		{"extension-id.txt", "collides with extension-id.txt"},
	}
	for _, tt := range tests {
		err := l.ValidateProfileName(wallets.MetaMask, tt.name)
		if tt.reason == "" {
			assert.NoError(t, err, tt.name)
			continue
		}
		var invalid *InvalidProfileNameError
		if assert.ErrorAs(t, err, &invalid, tt.name) {
			assert.Equal(t, tt.reason, invalid.Reason, tt.name)
		}
	}
	assert.NoError(t, l.ValidateProfileName(wallets.Petra, "metamask-extension"), "only the wallet's own names are reserved")
}

func TestRoot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(RootEnv, dir)
	root, err := Root()
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	t.Setenv(RootEnv, "")
	root, err = Root()
	require.NoError(t, err)
	assert.Equal(t, DefaultRootName, filepath.Base(root))
}

func TestPackageReaders(t *testing.T) {
	s := NewStore(t.TempDir())
	t.Setenv(RootEnv, s.Root)
	require.NoError(t, s.Commit(wallets.Solflare, Artifacts{ExtensionID: "sid", ExtensionPath: "/sp", Password: "spw"}))

	id, err := ExtensionID(wallets.Solflare)
	require.NoError(t, err)
	assert.Equal(t, "sid", id)

	p, err := ExtensionPath(wallets.Solflare)
	require.NoError(t, err)
	assert.Equal(t, "/sp", p)

	pw, err := Password(wallets.Solflare)
	require.NoError(t, err)
	assert.Equal(t, "spw", pw)
}
