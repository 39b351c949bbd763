package cache

import "github.com/kernel/walletcache/pkg/wallets"

// ExtensionID reads the extension id of a wallet from the default cache root.
func ExtensionID(id wallets.ID) (string, error) {
	s, err := DefaultStore()
	if err != nil {
		return "", err
	}
	return s.ExtensionID(id)
}

// ExtensionPath reads the unpacked extension path of a wallet from the
// default cache root.
func ExtensionPath(id wallets.ID) (string, error) {
	s, err := DefaultStore()
	if err != nil {
		return "", err
	}
	return s.ExtensionPath(id)
}

// Password reads the unlock password of a wallet from the default cache root.
func Password(id wallets.ID) (string, error) {
	s, err := DefaultStore()
	if err != nil {
		return "", err
	}
	return s.Password(id)
}
