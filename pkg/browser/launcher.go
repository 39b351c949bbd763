// Package browser launches Chromium with an unpacked wallet extension and
// finds the pages and ids the extension exposes once it is running.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// ClipboardPermissions are granted to every wallet context; several wallets
// copy recovery phrases and addresses through the clipboard.
var ClipboardPermissions = []string{"clipboard-read", "clipboard-write"}

// LaunchOptions describe a persistent Chromium context with one extension.
type LaunchOptions struct {
	UserDataDir   string
	ExtensionPath string
	Headless      bool
	// SlowMo slows every browser operation down by this many milliseconds.
	SlowMo float64
}

// Args returns the Chromium command line flags for o.
func (o LaunchOptions) Args() []string {
	args := []string{
		"--disable-extensions-except=" + o.ExtensionPath,
		"--load-extension=" + o.ExtensionPath,
	}
	// Playwright's own headless mode cannot load extensions; the new headless
	// Chromium can, so it is requested through a flag instead.
	if o.Headless {
		args = append(args, "--headless=new")
	}
	return args
}

// Chromium launches persistent contexts with a lazily started playwright
// driver. The zero value is ready to use.
type Chromium struct {
	// SkipInstall skips installing the driver and the Chromium build.
	SkipInstall bool

	once sync.Once
	pw   *playwright.Playwright
	err  error
}

func (c *Chromium) start() (*playwright.Playwright, error) {
	c.once.Do(func() {
		if !c.SkipInstall {
			if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
				c.err = fmt.Errorf("failed to install playwright browsers: %w", err)
				return
			}
		}
		pw, err := playwright.Run()
		if err != nil {
			c.err = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		c.pw = pw
	})
	return c.pw, c.err
}

// Launch starts Chromium on opts.UserDataDir with the extension loaded and
// the clipboard permissions granted.
func (c *Chromium) Launch(ctx context.Context, opts LaunchOptions) (playwright.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := c.start()
	if err != nil {
		return nil, err
	}

	bc, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(false),
		Args:     opts.Args(),
		SlowMo:   playwright.Float(opts.SlowMo),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}
	if err := bc.GrantPermissions(ClipboardPermissions); err != nil {
		bc.Close()
		return nil, fmt.Errorf("failed to grant clipboard permissions: %w", err)
	}
	return bc, nil
}

// Stop shuts the playwright driver down if it was started.
func (c *Chromium) Stop() error {
	if c.pw == nil {
		return nil
	}
	return c.pw.Stop()
}
