package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/pterm/pterm"
	"github.com/samber/lo"

	"github.com/kernel/walletcache/pkg/wallets"
)

// BlankPageWallets open no page of their own on install; discovery hands them
// a fresh blank page instead of polling.
var BlankPageWallets = []wallets.ID{"meteor"}

// PageSource is the part of a browser context page discovery needs.
type PageSource interface {
	Pages() []playwright.Page
	NewPage() (playwright.Page, error)
}

// PollOptions control how long FindExtensionPage waits.
type PollOptions struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

// DefaultPollOptions leave a slow CI machine two minutes to open the
// extension's onboarding page.
var DefaultPollOptions = PollOptions{
	InitialDelay: 4 * time.Second,
	Interval:     6 * time.Second,
	MaxAttempts:  20,
}

// ExtensionLoadTimeoutError is returned when no extension page showed up.
type ExtensionLoadTimeoutError struct {
	Wallet   wallets.ID
	Attempts int
}

func (e *ExtensionLoadTimeoutError) Error() string {
	return fmt.Sprintf("(%s) Extension failed to load properly after %d attempts!", e.Wallet, e.Attempts)
}

// FindExtensionPage waits for the wallet extension to open one of its pages
// and returns it.
func FindExtensionPage(ctx context.Context, src PageSource, id wallets.ID, opts PollOptions) (playwright.Page, error) {
	if lo.Contains(BlankPageWallets, id) {
		return src.NewPage()
	}

	pterm.Info.Printf("Waiting %s for browser to initialize...\n", opts.InitialDelay)
	if err := sleep(ctx, opts.InitialDelay); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if page := extensionPage(src.Pages()); page != nil {
			pterm.Success.Printf("Found extension page after %d polling attempts\n", attempt)
			return page, nil
		}
		if attempt == opts.MaxAttempts {
			break
		}
		pterm.Info.Printf("Extension page not found, retrying (%d/%d)...\n", attempt, opts.MaxAttempts)
		if err := sleep(ctx, opts.Interval); err != nil {
			return nil, err
		}
	}
	return nil, &ExtensionLoadTimeoutError{Wallet: id, Attempts: opts.MaxAttempts}
}

func extensionPage(pages []playwright.Page) playwright.Page {
	page, ok := lo.Find(pages, func(p playwright.Page) bool {
		return strings.HasPrefix(p.URL(), extensionScheme)
	})
	if !ok {
		return nil
	}
	return page
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
