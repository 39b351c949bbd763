package wallets

import (
	"context"
	"fmt"
)

// OnboardingMode selects how a wallet is initialised during onboarding.
type OnboardingMode string

const (
	// ModeCreate creates a fresh wallet with a new recovery phrase.
	ModeCreate OnboardingMode = "create"
	// ModeImport imports a wallet from a secret recovery phrase (MetaMask).
	ModeImport OnboardingMode = "import"
	// ModeImportMnemonic imports a wallet from a mnemonic phrase (Petra).
	ModeImportMnemonic OnboardingMode = "importMnemonic"
	// ModeImportPrivateKey imports a wallet from a raw private key (Petra).
	ModeImportPrivateKey OnboardingMode = "importPrivateKey"
)

// OnboardingArgs are the inputs to a wallet's onboarding flow.
type OnboardingArgs struct {
	Mode                 OnboardingMode
	Password             string
	SecretRecoveryPhrase string
	PrivateKey           string
}

// Validate checks that the arguments required by the mode are present.
func (a OnboardingArgs) Validate(allowed ...OnboardingMode) error {
	if a.Password == "" {
		return fmt.Errorf("onboarding password cannot be empty")
	}
	ok := false
	for _, m := range allowed {
		if a.Mode == m {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("unsupported onboarding mode %q (expected one of %v)", a.Mode, allowed)
	}
	switch a.Mode {
	case ModeImport, ModeImportMnemonic:
		if a.SecretRecoveryPhrase == "" {
			return fmt.Errorf("onboarding mode %q requires a secret recovery phrase", a.Mode)
		}
	case ModeImportPrivateKey:
		if a.PrivateKey == "" {
			return fmt.Errorf("onboarding mode %q requires a private key", a.Mode)
		}
	}
	return nil
}

// Onboarder runs the one-time onboarding flow of a wallet extension. This is
// the only capability the cache builder depends on.
type Onboarder interface {
	Onboard(ctx context.Context, args OnboardingArgs) error
}

// Locker locks an unlocked wallet.
type Locker interface {
	Lock(ctx context.Context) error
}

// Unlocker unlocks a wallet with its password.
type Unlocker interface {
	Unlock(ctx context.Context, password string) error
}

// AddAccountArgs describes an account imported from a private key.
type AddAccountArgs struct {
	AccountName string
	PrivateKey  string
}

// AccountManager manages the accounts held by a wallet.
type AccountManager interface {
	AddAccount(ctx context.Context, args AddAccountArgs) error
	SwitchAccount(ctx context.Context, accountName string) error
}
