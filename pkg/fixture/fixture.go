// Package fixture rebuilds a ready wallet session from the cache for a single
// test: the cached profile is copied to a throwaway context directory, Chromium
// is started on the copy with the cached extension and the wallet's own page
// is opened.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/kernel/walletcache/pkg/browser"
	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/util"
	"github.com/kernel/walletcache/pkg/wallets"
	"github.com/kernel/walletcache/pkg/wallets/metamask"
	"github.com/kernel/walletcache/pkg/wallets/petra"
)

// ContextDirName is the directory, under the working directory, that holds
// per-test profile copies.
const ContextDirName = ".wallet-context"

// Launcher starts a persistent browser context. *browser.Chromium implements
// it.
type Launcher interface {
	Launch(ctx context.Context, opts browser.LaunchOptions) (playwright.BrowserContext, error)
}

// indexPaths are the extension pages a wallet's UI lives on.
var indexPaths = map[wallets.ID]func(extensionID string) string{
	wallets.MetaMask: metamask.IndexURL,
	wallets.Petra:    petra.IndexURL,
	wallets.Phantom:  func(id string) string { return wallets.ExtensionURL(id, "popup.html") },
}

// IndexURL is the page a fixture opens for the wallet.
func IndexURL(w wallets.ID, extensionID string) string {
	if f, ok := indexPaths[w]; ok {
		return f(extensionID)
	}
	return wallets.ExtensionURL(extensionID, "index.html")
}

// ProfileNotCachedError is returned when setup has not produced the profile.
type ProfileNotCachedError struct {
	Wallet wallets.ID
	Dir    string
}

func (e *ProfileNotCachedError) Error() string {
	return fmt.Sprintf("❌ %s profile not found at %s. Run setup script first.", e.Wallet, e.Dir)
}

// Options configure Open.
type Options struct {
	Wallet wallets.ID
	// TestID names the context directory; a random id is used when empty.
	TestID string
	// Profile selects a named cached profile; empty means the default one.
	Profile  string
	Headless bool
	SlowMo   float64

	// Store defaults to cache.DefaultStore().
	Store *cache.Store
	// BaseDir defaults to ContextDirName under the working directory.
	BaseDir string
	// Launcher defaults to a *browser.Chromium owned by the session.
	Launcher Launcher
}

// Session is a running wallet browser for one test.
type Session struct {
	Wallet      wallets.ID
	Context     playwright.BrowserContext
	WalletPage  playwright.Page
	ExtensionID string
	Password    string
	// Dir is the per-test copy of the profile; Close removes it.
	Dir string

	owned *browser.Chromium
}

// Open starts a session from the cached profile of opts.Wallet.
func Open(ctx context.Context, opts Options) (*Session, error) {
	store := opts.Store
	if store == nil {
		var err error
		if store, err = cache.DefaultStore(); err != nil {
			return nil, err
		}
	}

	extID, err := store.ExtensionID(opts.Wallet)
	if err != nil {
		return nil, err
	}
	extPath, err := store.ExtensionPath(opts.Wallet)
	if err != nil {
		return nil, err
	}
	password, err := store.Password(opts.Wallet)
	if err != nil {
		return nil, err
	}

	if err := store.ValidateProfileName(opts.Wallet, opts.Profile); err != nil {
		return nil, err
	}
	profile := store.ProfileDir(opts.Wallet, opts.Profile)
	if _, err := os.Stat(profile); errors.Is(err, fs.ErrNotExist) {
		return nil, &ProfileNotCachedError{Wallet: opts.Wallet, Dir: profile}
	}

	dir, err := ContextDir(opts.BaseDir, opts.Wallet, opts.TestID)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear context directory: %w", err)
	}
	if err := util.CopyDir(profile, dir, &util.CopyDirOptions{Skip: util.SkipProfileLocks}); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to copy %s profile: %w", opts.Wallet, err)
	}

	s := &Session{Wallet: opts.Wallet, ExtensionID: extID, Password: password, Dir: dir}
	launcher := opts.Launcher
	if launcher == nil {
		s.owned = &browser.Chromium{}
		launcher = s.owned
	}

	bc, err := launcher.Launch(ctx, browser.LaunchOptions{
		UserDataDir:   dir,
		ExtensionPath: extPath,
		Headless:      opts.Headless,
		SlowMo:        opts.SlowMo,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Context = bc

	page, err := bc.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open wallet page: %w", err)
	}
	if _, err := page.Goto(IndexURL(opts.Wallet, extID)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open wallet page: %w", err)
	}
	s.WalletPage = page

	closeStrayPages(bc.Pages(), page)
	return s, nil
}

// ContextDir returns <base>/<wallet>-<testID>, with base defaulting to
// ContextDirName under the working directory and testID to a random uuid.
func ContextDir(base string, w wallets.ID, testID string) (string, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		base = filepath.Join(wd, ContextDirName)
	}
	if testID == "" {
		testID = uuid.NewString()
	}
	return filepath.Abs(filepath.Join(base, fmt.Sprintf("%s-%s", w, testID)))
}

// closeStrayPages closes the blank tab Chromium starts with and any onboarding
// tab the extension reopened, keeping keep.
func closeStrayPages(pages []playwright.Page, keep playwright.Page) {
	for _, p := range pages {
		if p == keep {
			continue
		}
		u := p.URL()
		if u == "about:blank" || strings.Contains(u, "#onboarding") {
			p.Close()
		}
	}
}

// MetaMask returns the MetaMask automation bound to the wallet page.
func (s *Session) MetaMask() *metamask.MetaMask {
	return metamask.New(s.WalletPage)
}

// Petra returns the Petra automation bound to the wallet page.
func (s *Session) Petra() *petra.Petra {
	return petra.New(s.WalletPage, s.ExtensionID)
}

// Close shuts the browser down and removes the context directory.
func (s *Session) Close() error {
	var errs []error
	if s.Context != nil {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser context: %w", err))
		}
	}
	if s.owned != nil {
		if err := s.owned.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove context directory: %w", err))
	}
	return errors.Join(errs...)
}
