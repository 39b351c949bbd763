package browser

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"
)

const extensionScheme = "chrome-extension://"

// IDSource is the part of a browser context extension id discovery needs.
type IDSource interface {
	PageSource
	ServiceWorkers() []playwright.Worker
	BackgroundPages() []playwright.Page
}

// ExtensionIDNotFoundError is returned when the running browser does not
// expose the extension.
type ExtensionIDNotFoundError struct {
	Name string
}

func (e *ExtensionIDNotFoundError) Error() string {
	return fmt.Sprintf("extension %q is not loaded in the browser", e.Name)
}

// IDFromURL returns the extension id of a chrome-extension:// URL.
func IDFromURL(u string) (string, bool) {
	rest, ok := strings.CutPrefix(u, extensionScheme)
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	return id, id != ""
}

// extensionsInfoScript runs on chrome://extensions, the only page that can
// call chrome.developerPrivate.
const extensionsInfoScript = `async (name) => {
	const want = name.toLowerCase();
	const all = await chrome.developerPrivate.getExtensionsInfo();
	const hit = all.find((e) => (e.name || "").toLowerCase() === want);
	return hit ? hit.id : "";
}`

// ExtensionID finds the id Chromium assigned to the extension named name. It
// checks service workers, background pages and open pages before falling back
// to the chrome://extensions listing.
func ExtensionID(ctx context.Context, src IDSource, name string) (string, error) {
	for _, w := range src.ServiceWorkers() {
		if id, ok := IDFromURL(w.URL()); ok {
			return id, nil
		}
	}
	for _, pages := range [][]playwright.Page{src.BackgroundPages(), src.Pages()} {
		for _, p := range pages {
			if id, ok := IDFromURL(p.URL()); ok {
				return id, nil
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return lookupByName(src, name)
}

func lookupByName(src PageSource, name string) (string, error) {
	page, err := src.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to open extensions page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto("chrome://extensions"); err != nil {
		return "", fmt.Errorf("failed to open extensions page: %w", err)
	}
	v, err := page.Evaluate(extensionsInfoScript, name)
	if err != nil {
		return "", fmt.Errorf("failed to list extensions: %w", err)
	}
	id, _ := v.(string)
	if id == "" {
		return "", &ExtensionIDNotFoundError{Name: name}
	}
	return id, nil
}

// UnpackedExtensionID predicts the id Chromium gives an unpacked extension
// without a manifest key: the hash of its absolute path.
func UnpackedExtensionID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return encodeID(sum[:]), nil
}

// KeyExtensionID derives the id fixed by a manifest "key" field.
func KeyExtensionID(key string) (string, error) {
	der, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("invalid manifest key: %w", err)
	}
	sum := sha256.Sum256(der)
	return encodeID(sum[:]), nil
}

// encodeID maps the first 16 bytes of a digest to Chromium's a-p alphabet.
func encodeID(sum []byte) string {
	h := []byte(hex.EncodeToString(sum[:16]))
	for i, c := range h {
		if c >= 'a' {
			h[i] = c - 'a' + 'k'
		} else {
			h[i] = c - '0' + 'a'
		}
	}
	return string(h)
}
