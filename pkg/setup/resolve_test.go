package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernel/walletcache/pkg/wallets"
)

func writeSetup(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func noopOnboard(context.Context, Env) error { return nil }

func TestResolve_AllWallets(t *testing.T) {
	dir := t.TempDir()
	mm := writeSetup(t, dir, "metamask.setup.yaml", "password: test1234\n")
	mm2 := writeSetup(t, dir, "nested/metamask-two.setup.yaml", "password: test1234\nprofileName: profile-two\n")
	pt := writeSetup(t, dir, ".hidden/petra.setup.toml", "password = \"pw\"\n[onboarding]\nmode = \"importMnemonic\"\nsecretRecoveryPhrase = \"a b c\"\n")
	writeSetup(t, dir, "README.md", "not a setup file")

	descs, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	require.NoError(t, err)
	require.Len(t, descs, 3)

	// Sorted by full path.
	assert.Equal(t, pt, descs[0].FilePath)
	assert.Equal(t, mm, descs[1].FilePath)
	assert.Equal(t, mm2, descs[2].FilePath)

	assert.Equal(t, wallets.Petra, descs[0].WalletName)
	assert.Equal(t, wallets.MetaMask, descs[1].WalletName)
	assert.Equal(t, "profile-two", descs[2].Config.ProfileName)
	assert.Equal(t, "", descs[1].Config.ProfileName)

	for _, d := range descs {
		assert.Len(t, d.FileList, 3)
		assert.Len(t, d.Hash, 64)
		assert.NotNil(t, d.Onboard)
	}
}

func TestResolve_SelectionFiltersFileList(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "metamask.setup.yaml", "password: test1234\n")
	writeSetup(t, dir, "metamask-two.setup.yaml", "password: test1234\nprofileName: profile-two\n")
	writeSetup(t, dir, "petra.setup.yaml", "password: pw\n")

	descs, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectWallet(wallets.MetaMask))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	for _, d := range descs {
		assert.Equal(t, wallets.MetaMask, d.WalletName)
		assert.Len(t, d.FileList, 2)
		for _, f := range d.FileList {
			assert.Equal(t, wallets.MetaMask, f.WalletName)
		}
	}
}

func TestResolve_NoFiles(t *testing.T) {
	r := &Resolver{Handlers: NewHandlers()}

	t.Run("empty dir", func(t *testing.T) {
		dir := t.TempDir()
		_, err := r.Resolve(dir, SelectAll)
		var notFound *NoSetupFilesFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, dir, notFound.Dir)
		assert.Contains(t, err.Error(), "No wallet setup files found at "+dir)
		assert.Contains(t, err.Error(), `must end with ".setup.{ts,js,mjs,yaml,yml,toml,json}" extension!`)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := r.Resolve(filepath.Join(t.TempDir(), "nope"), SelectAll)
		var notFound *NoSetupFilesFoundError
		assert.True(t, errors.As(err, &notFound))
	})

	t.Run("selection matches nothing", func(t *testing.T) {
		dir := t.TempDir()
		writeSetup(t, dir, "metamask.setup.yaml", "password: pw\n")
		_, err := r.Resolve(dir, SelectWallet(wallets.Solflare))
		var notFound *NoSetupFilesFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestResolve_InvalidFilename(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "keplr.setup.yaml", "password: pw\n")

	_, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	var invalid *InvalidSetupFilenameError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "keplr.setup.yaml", invalid.Name)
}

func TestResolve_DecodeErrorWrapsPath(t *testing.T) {
	dir := t.TempDir()
	p := writeSetup(t, dir, "metamask.setup.json", `{"password": "pw", "pasword": "typo"}`)

	_, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	require.Error(t, err)
	assert.Contains(t, err.Error(), p)
}

func TestResolve_EmptyPassword(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "metamask.setup.yaml", "profileName: x\n")

	_, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	assert.ErrorContains(t, err, "password cannot be empty")
}

func TestResolve_Dedup(t *testing.T) {
	dir := t.TempDir()
	a := writeSetup(t, dir, "metamask.setup.yaml", "password: same\n")
	b := writeSetup(t, dir, "vendored/metamask.setup.yaml", "password: same\n")
	// Same content under another stem or wallet is not a duplicate.
	writeSetup(t, dir, "metamask-copy.setup.yaml", "password: same\n")
	writeSetup(t, dir, "petra.setup.yaml", "password: same\n")

	var kept, dropped string
	r := &Resolver{Handlers: NewHandlers(), OnDuplicate: func(k, d string) { kept, dropped = k, d }}
	descs, err := r.Resolve(dir, SelectAll)
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, a, kept)
	assert.Equal(t, b, dropped)

	for _, d := range descs {
		assert.NotEqual(t, b, d.FilePath)
		assert.Len(t, d.FileList, 4, "the file list keeps every match")
	}
}

func TestResolve_SameContentDifferentStems(t *testing.T) {
	dir := t.TempDir()
	mm := writeSetup(t, dir, "metamask.setup.yaml", "password: pw\n")
	mm2 := writeSetup(t, dir, "metamask-two.setup.yaml", "password: pw\n")

	h := NewHandlers()
	require.NoError(t, h.Register("metamask", Define("pw", noopOnboard)))
	require.NoError(t, h.Register("metamask-two", Define("pw", noopOnboard, Config{ProfileName: "profile-two"})))

	descs, err := (&Resolver{Handlers: h}).Resolve(dir, SelectWallet(wallets.MetaMask))
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, mm2, descs[0].FilePath)
	assert.Equal(t, "profile-two", descs[0].Config.ProfileName)
	assert.Equal(t, mm, descs[1].FilePath)
	assert.Equal(t, "", descs[1].Config.ProfileName)
	for _, d := range descs {
		assert.Equal(t, wallets.MetaMask, d.WalletName)
		assert.Len(t, d.FileList, 2)
	}
}

func TestResolve_ScriptSetups(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "metamask.setup.ts", "export default defineWalletSetup(...)\n")
	writeSetup(t, dir, "metamask-two.setup.ts", "export default defineWalletSetup(...)\n")

	h := NewHandlers()
	require.NoError(t, h.Register("metamask", Define("Tester@1234", noopOnboard)))
	require.NoError(t, h.Register("metamask-two", Define("Tester@1234", noopOnboard, Config{ProfileName: "profile-two"})))

	descs, err := (&Resolver{Handlers: h}).Resolve(dir, SelectWallet(wallets.MetaMask))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	for _, d := range descs {
		assert.Equal(t, wallets.MetaMask, d.WalletName)
		assert.Equal(t, "Tester@1234", d.Password)
		assert.Len(t, d.FileList, 2)
		assert.NotNil(t, d.Onboard)
	}
	assert.Equal(t, "profile-two", descs[0].Config.ProfileName)
}

func TestResolve_ScriptWithoutHandler(t *testing.T) {
	dir := t.TempDir()
	p := writeSetup(t, dir, "petra.setup.js", "module.exports = {}\n")

	h := NewHandlers()
	require.NoError(t, h.Register("metamask", Define("pw", noopOnboard)))

	_, err := (&Resolver{Handlers: h}).Resolve(dir, SelectAll)
	var unregistered *UnregisteredSetupError
	require.ErrorAs(t, err, &unregistered)
	assert.Equal(t, "petra", unregistered.Stem)
	assert.Equal(t, p, unregistered.FilePath)
	assert.Contains(t, err.Error(), `setup.Register("petra", ...)`)
	assert.Contains(t, err.Error(), "registered: metamask")
}

func TestResolve_HandlerPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "metamask-two.setup.yaml", "password: from-file\n")
	writeSetup(t, dir, "phantom.setup.yaml", "password: pw\nslowMo: 250\nonboarding:\n  handler: phantom-import\n")

	var called []string
	h := NewHandlers()
	require.NoError(t, h.Register("metamask-two", Define("from-go", func(context.Context, Env) error {
		called = append(called, "metamask-two")
		return nil
	}, Config{ProfileName: "profile-two"})))
	require.NoError(t, h.Register("phantom-import", Define("", func(context.Context, Env) error {
		called = append(called, "phantom-import")
		return nil
	})))

	descs, err := (&Resolver{Handlers: h}).Resolve(dir, SelectAll)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	mm, ph := descs[0], descs[1]
	assert.Equal(t, "from-file", mm.Password, "file values win over the Go setup")
	assert.Equal(t, "profile-two", mm.Config.ProfileName)
	assert.Equal(t, "pw", ph.Password)
	assert.Equal(t, 250.0, ph.Config.SlowMo)

	require.NoError(t, mm.Onboard(context.Background(), Env{}))
	require.NoError(t, ph.Onboard(context.Background(), Env{}))
	assert.Equal(t, []string{"metamask-two", "phantom-import"}, called)
}

func TestResolve_UnknownHandler(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "solflare.setup.yaml", "password: pw\nonboarding:\n  handler: missing\n")

	_, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	assert.ErrorContains(t, err, `unknown onboarding handler "missing"`)
}

func TestResolve_NoBuiltinOnboarding(t *testing.T) {
	dir := t.TempDir()
	writeSetup(t, dir, "solflare.setup.yaml", "password: pw\n")

	_, err := (&Resolver{Handlers: NewHandlers()}).Resolve(dir, SelectAll)
	var noBuiltin *NoBuiltinOnboardingError
	require.True(t, errors.As(err, &noBuiltin))
	assert.Equal(t, wallets.Solflare, noBuiltin.Wallet)
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
	assert.Len(t, Hash(nil), 64)
}

func TestDefaultMode(t *testing.T) {
	assert.Equal(t, wallets.ModeCreate, defaultMode(wallets.MetaMask, Onboarding{}))
	assert.Equal(t, wallets.ModeImport, defaultMode(wallets.MetaMask, Onboarding{SecretRecoveryPhrase: "a b"}))
	assert.Equal(t, wallets.ModeImportMnemonic, defaultMode(wallets.Petra, Onboarding{SecretRecoveryPhrase: "a b"}))
	assert.Equal(t, wallets.ModeImportPrivateKey, defaultMode(wallets.Petra, Onboarding{PrivateKey: "0x1"}))
	assert.Equal(t, wallets.ModeCreate, defaultMode(wallets.Petra, Onboarding{Mode: wallets.ModeCreate, PrivateKey: "0x1"}))
}

func TestHandlers(t *testing.T) {
	h := NewHandlers()
	require.NoError(t, h.Register("b", Define("pw", noopOnboard)))
	require.NoError(t, h.Register("a", Define("pw", noopOnboard)))

	assert.ErrorContains(t, h.Register("a", Define("pw", noopOnboard)), "already registered")
	assert.ErrorContains(t, h.Register("", Define("pw", noopOnboard)), "cannot be empty")
	assert.ErrorContains(t, h.Register("c", Define("pw", nil)), "no onboarding function")
	assert.Equal(t, []string{"a", "b"}, h.Names())

	_, ok := h.Lookup("a")
	assert.True(t, ok)
}

func TestDefine(t *testing.T) {
	s := Define("pw", noopOnboard)
	assert.Equal(t, "pw", s.Password)
	assert.Equal(t, Config{}, s.Config)

	s = Define("pw", noopOnboard, Config{ProfileName: "p", SlowMo: 10})
	assert.Equal(t, "p", s.Config.ProfileName)
	assert.Equal(t, 10.0, s.Config.SlowMo)
}

func TestDecode(t *testing.T) {
	yamlDef, err := Decode("yml", []byte("password: pw\nonboarding:\n  mode: import\n  secretRecoveryPhrase: a b c\n"))
	require.NoError(t, err)
	assert.Equal(t, wallets.ModeImport, yamlDef.Onboarding.Mode)

	tomlDef, err := Decode("toml", []byte("password = \"pw\"\nslowMo = 100.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 100.5, tomlDef.SlowMo)

	jsonDef, err := Decode("json", []byte(`{"password":"pw","profileName":"p"}`))
	require.NoError(t, err)
	assert.Equal(t, "p", jsonDef.ProfileName)

	_, err = Decode("yaml", []byte("passwrd: pw\n"))
	assert.Error(t, err)

	_, err = Decode("toml", []byte("passwrd = \"pw\"\n"))
	assert.ErrorContains(t, err, "unknown key")

	empty, err := Decode("yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Definition{}, empty)

	_, err = Decode("ini", nil)
	assert.Error(t, err)
}
