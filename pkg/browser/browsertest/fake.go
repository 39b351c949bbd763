// Package browsertest provides a fake playwright.BrowserContext.
package browsertest

import (
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/kernel/walletcache/pkg/wallets/wallettest"
)

// Context is a fake persistent browser context. Methods that are not
// implemented panic through the nil embedded interface.
type Context struct {
	playwright.BrowserContext

	mu sync.Mutex

	PageList    []playwright.Page
	Workers     []playwright.Worker
	Backgrounds []playwright.Page

	// PagesFunc overrides PageList when set; it is called on every Pages.
	PagesFunc func() []playwright.Page
	// NewPageFunc overrides the default blank page factory.
	NewPageFunc func() (playwright.Page, error)

	GrantErr error
	CloseErr error

	Granted    []string
	CloseCalls int
	NewPages   int
}

func (c *Context) Pages() []playwright.Page {
	if c.PagesFunc != nil {
		return c.PagesFunc()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]playwright.Page(nil), c.PageList...)
}

func (c *Context) NewPage() (playwright.Page, error) {
	c.mu.Lock()
	c.NewPages++
	c.mu.Unlock()
	if c.NewPageFunc != nil {
		return c.NewPageFunc()
	}
	p := wallettest.NewPage("about:blank")
	c.mu.Lock()
	c.PageList = append(c.PageList, p)
	c.mu.Unlock()
	return p, nil
}

func (c *Context) ServiceWorkers() []playwright.Worker {
	return c.Workers
}

func (c *Context) BackgroundPages() []playwright.Page {
	return c.Backgrounds
}

func (c *Context) GrantPermissions(permissions []string, options ...playwright.BrowserContextGrantPermissionsOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Granted = append(c.Granted, permissions...)
	return c.GrantErr
}

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCalls++
	return c.CloseErr
}

// Worker is a fake service worker with a fixed URL.
type Worker struct {
	playwright.Worker
	Address string
}

func (w *Worker) URL() string { return w.Address }
