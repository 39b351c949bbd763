// Package setup discovers wallet setup definitions and turns them into
// descriptors the cache builder can run.
package setup

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/kernel/walletcache/pkg/wallets"
)

// Env is what an onboarding function gets to work with.
type Env struct {
	Context    playwright.BrowserContext
	WalletPage playwright.Page
}

// OnboardFunc drives a freshly loaded wallet extension through onboarding.
type OnboardFunc func(ctx context.Context, env Env) error

// Config holds optional per-setup settings.
type Config struct {
	// ProfileName selects the profile directory inside the cache entry.
	// Empty means cache.DefaultProfile.
	ProfileName string

	// SlowMo slows browser operations down by this many milliseconds.
	SlowMo float64
}

// Setup is a wallet setup: the password the wallet is onboarded with and the
// onboarding function itself.
type Setup struct {
	Password string
	Onboard  OnboardFunc
	Config   Config
}

// Define builds a Setup. At most one Config is used.
func Define(password string, fn OnboardFunc, cfg ...Config) Setup {
	s := Setup{Password: password, Onboard: fn}
	if len(cfg) > 0 {
		s.Config = cfg[0]
	}
	return s
}

// FileRef is one setup file matched by the resolver.
type FileRef struct {
	FilePath   string
	WalletName wallets.ID
}

// Descriptor is a resolved setup, ready to be turned into a cache entry.
type Descriptor struct {
	WalletName wallets.ID
	FilePath   string

	// Hash is the hex blake3 digest of the setup file contents.
	Hash string

	Password string
	Onboard  OnboardFunc
	Config   Config

	// FileList holds every setup file that survived selection filtering,
	// including this one.
	FileList []FileRef
}
