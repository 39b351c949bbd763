// Package wallets describes the browser-extension wallets that can be cached
// for end-to-end testing.
package wallets

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ID identifies a supported wallet extension.
type ID string

const (
	MetaMask ID = "metamask"
	Petra    ID = "petra"
	Phantom  ID = "phantom"
	Solflare ID = "solflare"
)

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Descriptor is the static metadata of a wallet extension.
type Descriptor struct {
	ID ID

	// DownloadURL points at a zip (or crx) archive of the unpacked extension
	DownloadURL string

	// ExtensionName is the display name Chrome shows for the extension
	ExtensionName string
}

// chromeWebStoreURL returns the update-service URL that redirects to the
// latest CRX for a Chrome Web Store item. CRX files are zip archives with a
// signed header, which archive/zip reads transparently.
func chromeWebStoreURL(storeID string) string {
	return "https://clients2.google.com/service/update2/crx?response=redirect&prodversion=131.0&acceptformat=crx2,crx3&x=id%3D" + storeID + "%26uc"
}

var registry = []Descriptor{
	{
		ID:            MetaMask,
		DownloadURL:   "https://github.com/MetaMask/metamask-extension/releases/download/v12.23.0/metamask-chrome-12.23.0.zip",
		ExtensionName: "MetaMask",
	},
	{
		ID:            Petra,
		DownloadURL:   chromeWebStoreURL("ejjladinnckdgjemekebdpeokbikhfci"),
		ExtensionName: "Petra Aptos Wallet",
	},
	{
		ID:            Phantom,
		DownloadURL:   chromeWebStoreURL("bfnaelmomeimhlpmgjnjophhpkkoljpa"),
		ExtensionName: "Phantom",
	},
	{
		ID:            Solflare,
		DownloadURL:   chromeWebStoreURL("bhhhlbepdkbapadjdnnojkbgioiodbic"),
		ExtensionName: "Solflare Wallet",
	},
}

// UnknownWalletError is returned when an identifier is not one of the
// supported wallets.
type UnknownWalletError struct {
	ID string
}

func (e *UnknownWalletError) Error() string {
	return fmt.Sprintf("unknown wallet %q (supported: %s)", e.ID, strings.Join(Names(), ", "))
}

// Lookup returns the descriptor for id. The download URL may be overridden
// with WALLET_<ID>_DOWNLOAD_URL, e.g. WALLET_METAMASK_DOWNLOAD_URL.
func Lookup(id string) (Descriptor, error) {
	d, ok := lo.Find(registry, func(d Descriptor) bool { return string(d.ID) == id })
	if !ok {
		return Descriptor{}, &UnknownWalletError{ID: id}
	}
	if u := strings.TrimSpace(os.Getenv(downloadURLEnv(d.ID))); u != "" {
		d.DownloadURL = u
	}
	return d, nil
}

// ParseID validates s and returns it as an ID.
func ParseID(s string) (ID, error) {
	d, err := Lookup(s)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// IsSupported reports whether s names a supported wallet.
func IsSupported(s string) bool {
	return lo.ContainsBy(registry, func(d Descriptor) bool { return string(d.ID) == s })
}

// All returns every descriptor in registry order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		resolved, _ := Lookup(string(d.ID))
		out = append(out, resolved)
	}
	return out
}

// IDs returns the supported identifiers in registry order.
func IDs() []ID {
	return lo.Map(registry, func(d Descriptor, _ int) ID { return d.ID })
}

// Names returns the supported identifiers as strings.
func Names() []string {
	return lo.Map(registry, func(d Descriptor, _ int) string { return string(d.ID) })
}

func downloadURLEnv(id ID) string {
	return "WALLET_" + strings.ToUpper(string(id)) + "_DOWNLOAD_URL"
}
