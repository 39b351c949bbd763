package setup

import (
	"context"
	"fmt"

	"github.com/kernel/walletcache/pkg/wallets"
	"github.com/kernel/walletcache/pkg/wallets/metamask"
	"github.com/kernel/walletcache/pkg/wallets/petra"
)

// NoBuiltinOnboardingError is returned for a setup file whose wallet has no
// built-in onboarding and that names no Go handler.
type NoBuiltinOnboardingError struct {
	Wallet   wallets.ID
	FilePath string
}

func (e *NoBuiltinOnboardingError) Error() string {
	return fmt.Sprintf("%s has no built-in onboarding (%s): register a Go handler with setup.Register and reference it with onboarding.handler", e.Wallet, e.FilePath)
}

// builtinOnboarder builds the onboarding automation of a wallet for a page.
type builtinOnboarder func(env Env) wallets.Onboarder

var builtins = map[wallets.ID]builtinOnboarder{
	wallets.MetaMask: func(env Env) wallets.Onboarder { return metamask.New(env.WalletPage) },
	wallets.Petra:    func(env Env) wallets.Onboarder { return petra.New(env.WalletPage, "") },
}

// defaultMode picks the onboarding mode when a setup file leaves it out.
func defaultMode(id wallets.ID, o Onboarding) wallets.OnboardingMode {
	switch {
	case o.Mode != "":
		return o.Mode
	case o.PrivateKey != "" && id == wallets.Petra:
		return wallets.ModeImportPrivateKey
	case o.SecretRecoveryPhrase != "" && id == wallets.Petra:
		return wallets.ModeImportMnemonic
	case o.SecretRecoveryPhrase != "":
		return wallets.ModeImport
	default:
		return wallets.ModeCreate
	}
}

// builtinOnboard returns the built-in onboarding of a wallet driven by the
// arguments of a setup file.
func builtinOnboard(id wallets.ID, path string, def Definition) (OnboardFunc, error) {
	mk, ok := builtins[id]
	if !ok {
		return nil, &NoBuiltinOnboardingError{Wallet: id, FilePath: path}
	}
	args := wallets.OnboardingArgs{
		Mode:                 defaultMode(id, def.Onboarding),
		Password:             def.Password,
		SecretRecoveryPhrase: def.Onboarding.SecretRecoveryPhrase,
		PrivateKey:           def.Onboarding.PrivateKey,
	}
	return func(ctx context.Context, env Env) error {
		return mk(env).Onboard(ctx, args)
	}, nil
}
