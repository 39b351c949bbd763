package wallets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
)

// WaitOptions bound how long a UI step waits for an element to reach the
// expected state.
type WaitOptions struct {
	Timeout time.Duration
	// Interval is the delay between two checks of a polled condition.
	Interval time.Duration
}

// DefaultWait is used by automation that was not given WaitOptions.
var DefaultWait = WaitOptions{Timeout: 15 * time.Second, Interval: 100 * time.Millisecond}

func (w WaitOptions) withDefaults() WaitOptions {
	if w.Timeout <= 0 {
		w.Timeout = DefaultWait.Timeout
	}
	if w.Interval <= 0 {
		w.Interval = DefaultWait.Interval
	}
	return w
}

// Step is one UI action in an automation flow.
type Step struct {
	Name string
	Do   func() error
}

// RunSteps runs steps in order. It stops at the first failure or when ctx is
// cancelled between steps.
func RunSteps(ctx context.Context, steps ...Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Do(); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

// WaitVisible blocks until l is visible.
func (w WaitOptions) WaitVisible(l playwright.Locator) error {
	return l.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(w.withDefaults().Timeout.Milliseconds())),
	})
}

// ClickVisible waits for l to become visible and clicks it.
func (w WaitOptions) ClickVisible(l playwright.Locator) error {
	if err := w.WaitVisible(l); err != nil {
		return err
	}
	return l.Click()
}

// FillVisible waits for l to become visible and fills it with value.
func (w WaitOptions) FillVisible(l playwright.Locator, value string) error {
	if err := w.WaitVisible(l); err != nil {
		return err
	}
	return l.Fill(value)
}

// ClickEnabled waits for l to become enabled and clicks it.
func (w WaitOptions) ClickEnabled(l playwright.Locator) error {
	err := w.poll(func() (bool, error) { return l.IsEnabled() })
	if err != nil {
		return fmt.Errorf("element not enabled: %w", err)
	}
	return l.Click()
}

// ExpectText waits until the text content of l matches re.
func (w WaitOptions) ExpectText(l playwright.Locator, re *regexp.Regexp) error {
	var last string
	err := w.poll(func() (bool, error) {
		text, err := l.TextContent()
		if err != nil {
			return false, err
		}
		last = text
		return re.MatchString(text), nil
	})
	if err != nil {
		return fmt.Errorf("expected text matching %s, got %q: %w", re, last, err)
	}
	return nil
}

// poll calls cond until it reports true or w.Timeout elapses. Errors from
// cond are retried, the last one is returned on timeout.
func (w WaitOptions) poll(cond func() (bool, error)) error {
	w = w.withDefaults()
	deadline := time.Now().Add(w.Timeout)
	var lastErr error
	for {
		ok, err := cond()
		if err == nil && ok {
			return nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			if lastErr == nil {
				lastErr = errTimeout
			}
			return lastErr
		}
		time.Sleep(w.Interval)
	}
}

var errTimeout = errors.New("timed out")

// ExtensionURL builds a chrome-extension:// URL for an extension page.
func ExtensionURL(extensionID, path string) string {
	return "chrome-extension://" + extensionID + "/" + path
}
