// Package download fetches wallet extension archives.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
)

// DefaultTimeout bounds a whole download, body included.
const DefaultTimeout = 120 * time.Second

// Error is returned when a download fails. StatusCode is zero for transport
// failures and timeouts.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("❌ Download failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("❌ Download failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client downloads files over HTTP, following redirects.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration

	// Progress shows a progress bar when the response has a known length.
	Progress bool
}

// NewClient returns a client with the default timeout and a progress bar.
func NewClient() *Client {
	return &Client{HTTP: http.DefaultClient, Timeout: DefaultTimeout, Progress: true}
}

// File streams url into dest. A partial file is removed on failure.
func (c *Client) File(ctx context.Context, url, dest string) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	var w io.Writer = out
	var bar *pterm.ProgressbarPrinter
	if c.Progress && resp.ContentLength > 0 {
		bar, _ = pterm.DefaultProgressbar.
			WithTotal(int(resp.ContentLength)).
			WithTitle("Downloading " + filepath.Base(dest)).
			Start()
		if bar != nil {
			w = io.MultiWriter(out, progressWriter{bar})
		}
	}

	_, copyErr := io.Copy(w, resp.Body)
	closeErr := out.Close()
	if bar != nil {
		_, _ = bar.Stop()
	}
	if copyErr != nil || closeErr != nil {
		os.Remove(dest)
		err := errors.Join(copyErr, closeErr)
		if ctx.Err() != nil {
			return &Error{URL: url, Err: ctx.Err()}
		}
		return &Error{URL: url, Err: err}
	}
	return nil
}

type progressWriter struct {
	bar *pterm.ProgressbarPrinter
}

func (p progressWriter) Write(b []byte) (int, error) {
	p.bar.Add(len(b))
	return len(b), nil
}
