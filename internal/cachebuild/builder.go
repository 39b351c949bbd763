// Package cachebuild turns a resolved wallet setup into a cache entry: the
// unpacked extension, an onboarded browser profile and the artifacts tests
// read back.
package cachebuild

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/pterm/pterm"

	"github.com/kernel/walletcache/pkg/browser"
	"github.com/kernel/walletcache/internal/extension"
	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/setup"
	"github.com/kernel/walletcache/pkg/wallets"
)

// Provisioner makes the unpacked extension available and returns its path.
type Provisioner interface {
	Provision(ctx context.Context, id wallets.ID, downloadURL string, force bool) (string, error)
}

// Launcher starts a persistent browser context.
type Launcher interface {
	Launch(ctx context.Context, opts browser.LaunchOptions) (playwright.BrowserContext, error)
}

// Status is the outcome of a successful CreateCache.
type Status int

const (
	// StatusCreated means a profile was onboarded and cached.
	StatusCreated Status = iota
	// StatusAlreadyProvisioned means the profile existed and nothing was done.
	StatusAlreadyProvisioned
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusAlreadyProvisioned:
		return "already provisioned"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result describes a finished cache build.
type Result struct {
	Status        Status
	Wallet        wallets.ID
	ProfileDir    string
	ExtensionPath string
	ExtensionID   string
}

// ProfileConflictError is returned when several setup files would write the
// same profile directory.
type ProfileConflictError struct {
	Wallet        wallets.ID
	ExtensionName string
	Profile       string
}

func (e *ProfileConflictError) Error() string {
	return strings.Join([]string{
		fmt.Sprintf("❌ %s directory already exists for %s.", e.Profile, e.ExtensionName),
		" To setup another wallet profile, add a profile name to the wallet setup.",
		`Example: profileName: "profile-name"`,
		"You can also use the --force flag to overwrite the existing cache.",
	}, "\n")
}

// CreateInput is one cache build request.
type CreateInput struct {
	Wallet   wallets.Descriptor
	Setup    setup.Descriptor
	FileList []setup.FileRef
	Force    bool
	Headless bool
}

// Builder creates wallet cache entries.
type Builder struct {
	Store       *cache.Store
	Provisioner Provisioner
	Launcher    Launcher
	Poll        browser.PollOptions
}

// New returns a builder for store that downloads with the default client and
// launches Chromium through launcher.
func New(store *cache.Store, launcher Launcher) *Builder {
	return &Builder{
		Store:       store,
		Provisioner: extension.NewProvisioner(store.Layout),
		Launcher:    launcher,
		Poll:        browser.DefaultPollOptions,
	}
}

// CreateCache provisions the extension, launches it on a fresh profile,
// records the extension artifacts and runs the onboarding function. An
// existing profile is left untouched.
func (b *Builder) CreateCache(ctx context.Context, in CreateInput) (res Result, err error) {
	id := in.Wallet.ID
	if in.Setup.Onboard == nil {
		return Result{Wallet: id}, fmt.Errorf("%s setup has no onboarding function", id)
	}
	if err := b.Store.ValidateProfileName(id, in.Setup.Config.ProfileName); err != nil {
		return Result{Wallet: id}, err
	}
	res = Result{Wallet: id, ProfileDir: b.Store.ProfileDir(id, in.Setup.Config.ProfileName)}

	extPath, err := b.Provisioner.Provision(ctx, id, in.Wallet.DownloadURL, in.Force)
	if err != nil {
		return res, err
	}
	res.ExtensionPath = extPath

	exists, err := dirExists(res.ProfileDir)
	if err != nil {
		return res, err
	}
	if exists && len(in.FileList) > 1 {
		return res, &ProfileConflictError{
			Wallet:        id,
			ExtensionName: in.Wallet.ExtensionName,
			Profile:       profileName(in.Setup.Config.ProfileName),
		}
	}
	if exists {
		res.Status = StatusAlreadyProvisioned
		return res, nil
	}

	bc, err := b.Launcher.Launch(ctx, browser.LaunchOptions{
		UserDataDir:   res.ProfileDir,
		ExtensionPath: extPath,
		Headless:      in.Headless,
		SlowMo:        in.Setup.Config.SlowMo,
	})
	if err != nil {
		os.RemoveAll(res.ProfileDir)
		return res, err
	}
	defer func() {
		if cerr := bc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close browser context: %w", cerr)
		}
		// A half onboarded profile would be taken for a finished one next time.
		if err != nil {
			os.RemoveAll(res.ProfileDir)
		}
	}()

	pterm.Info.Printf("🧩🚀 Starting Chrome extension for %s\n", strings.ToUpper(string(id)))
	page, err := browser.FindExtensionPage(ctx, bc, id, b.Poll)
	if err != nil {
		return res, err
	}

	if !b.Store.HasExtensionID(id) {
		extID, err := b.extensionID(ctx, bc, in.Wallet, extPath)
		if err != nil {
			return res, err
		}
		if err := b.Store.Commit(id, cache.Artifacts{
			ExtensionID:   extID,
			ExtensionPath: extPath,
			Password:      in.Setup.Password,
		}); err != nil {
			return res, err
		}
		pterm.Info.Printf("🆔 %s extension ID: %s\n", in.Wallet.ExtensionName, extID)
		pterm.Info.Printf("💾 Saved extension artifacts to: %s\n", b.Store.EntryDir(id))
		res.ExtensionID = extID
	} else if extID, err := b.Store.ExtensionID(id); err == nil {
		res.ExtensionID = extID
	}

	if err := in.Setup.Onboard(ctx, setup.Env{Context: bc, WalletPage: page}); err != nil {
		return res, fmt.Errorf("failed to run %s wallet setup: %w", id, err)
	}
	res.Status = StatusCreated
	return res, nil
}

// extensionID asks the browser for the extension id and predicts it from the
// manifest when the browser does not expose it.
func (b *Builder) extensionID(ctx context.Context, bc playwright.BrowserContext, w wallets.Descriptor, extPath string) (string, error) {
	extID, err := browser.ExtensionID(ctx, bc, w.ExtensionName)
	if err == nil {
		return extID, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	pterm.Warning.Printf("Could not read %s extension ID from the browser (%v), deriving it from the extension\n", w.ID, err)

	m, merr := extension.ReadManifest(w.ID, extPath)
	if merr != nil {
		return "", merr
	}
	if m.Key != "" {
		return browser.KeyExtensionID(m.Key)
	}
	return browser.UnpackedExtensionID(extPath)
}

func profileName(p string) string {
	if p == "" {
		return cache.DefaultProfile
	}
	return p
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check profile directory: %w", err)
	}
	return info.IsDir(), nil
}
