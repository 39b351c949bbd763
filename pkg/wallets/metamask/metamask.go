// Package metamask automates the MetaMask extension UI.
package metamask

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/playwright-community/playwright-go"
	"github.com/pterm/pterm"

	"github.com/kernel/walletcache/pkg/wallets"
)

const (
	// OnboardingPath is the URL fragment of the onboarding tab MetaMask opens
	// on first launch.
	OnboardingPath = "/home.html#onboarding"

	indexPath = "home.html"
)

var (
	walletReadyText   = regexp.MustCompile(`(?i)your wallet is ready`)
	accountsHeading   = regexp.MustCompile(`(?i)accounts`)
	addWalletText     = regexp.MustCompile(`(?i)add wallet`)
	renameHeading     = regexp.MustCompile(`(?i)rename`)
	confirmName       = regexp.MustCompile(`(?i)confirm`)
	accountCellTestID = regexp.MustCompile(`^multichain-account-cell-entropy:`)
)

// DefaultSyncTimeout is how long account actions wait for MetaMask to finish
// syncing accounts.
const DefaultSyncTimeout = 60 * time.Second

// MetaMask drives one MetaMask extension page.
type MetaMask struct {
	page playwright.Page

	Wait        wallets.WaitOptions
	SyncTimeout time.Duration
}

var (
	_ wallets.Onboarder      = (*MetaMask)(nil)
	_ wallets.Locker         = (*MetaMask)(nil)
	_ wallets.Unlocker       = (*MetaMask)(nil)
	_ wallets.AccountManager = (*MetaMask)(nil)
)

// New returns automation for page, which must be a MetaMask extension page.
func New(page playwright.Page) *MetaMask {
	return &MetaMask{page: page, Wait: wallets.DefaultWait, SyncTimeout: DefaultSyncTimeout}
}

// IndexURL is the MetaMask home page for an extension id.
func IndexURL(extensionID string) string {
	return wallets.ExtensionURL(extensionID, indexPath)
}

// Page returns the underlying page.
func (m *MetaMask) Page() playwright.Page { return m.page }

func (m *MetaMask) testID(id string) playwright.Locator {
	return m.page.GetByTestId(id)
}

func (m *MetaMask) click(id string) wallets.Step {
	return wallets.Step{Name: "click " + id, Do: func() error { return m.Wait.ClickVisible(m.testID(id)) }}
}

func (m *MetaMask) fill(id, value string) wallets.Step {
	return wallets.Step{Name: "fill " + id, Do: func() error { return m.Wait.FillVisible(m.testID(id), value) }}
}

func (m *MetaMask) visible(id string) wallets.Step {
	return wallets.Step{Name: "wait for " + id, Do: func() error { return m.Wait.WaitVisible(m.testID(id)) }}
}

// Onboard creates or imports a wallet. Supported modes are create and import.
func (m *MetaMask) Onboard(ctx context.Context, args wallets.OnboardingArgs) error {
	if err := args.Validate(wallets.ModeCreate, wallets.ModeImport); err != nil {
		return fmt.Errorf("metamask: %w", err)
	}
	pterm.Info.Println("🦊 MetaMask onboarding started...")

	var steps []wallets.Step
	if args.Mode == wallets.ModeCreate {
		steps = append(steps,
			m.click(createWalletButton),
			m.click(useSecretRecoveryPhraseButton),
		)
		steps = append(steps, m.passwordSteps(args.Password)...)
		steps = append(steps,
			m.click(revealSecretRecoveryPhraseButton),
			m.click(recoveryPhraseRemindMeLaterButton),
			m.click(metamaskMetricsIAgreeButton),
		)
	} else {
		steps = append(steps,
			m.click(importWalletButton),
			m.click(importUsingSecretRecoveryPhraseButton),
		)
		steps = append(steps, m.recoveryPhraseSteps(args.SecretRecoveryPhrase)...)
		steps = append(steps, wallets.Step{Name: "confirm recovery phrase", Do: func() error {
			l := m.testID(importWalletConfirmButton)
			if err := m.Wait.WaitVisible(l); err != nil {
				return err
			}
			return m.Wait.ClickEnabled(l)
		}})
		steps = append(steps, m.passwordSteps(args.Password)...)
		steps = append(steps,
			m.click(metamaskMetricsIAgreeButton),
			wallets.Step{Name: "wait for wallet ready", Do: func() error {
				return m.Wait.ExpectText(m.testID(walletReadyBox), walletReadyText)
			}},
		)
	}
	steps = append(steps,
		m.click(onboardingDoneButton),
		m.visible(buyButton),
		m.visible(swapButton),
		m.visible(sendButton),
		m.visible(receiveButton),
	)

	if err := wallets.RunSteps(ctx, steps...); err != nil {
		return fmt.Errorf("metamask onboarding failed: %w", err)
	}
	pterm.Success.Println("MetaMask onboarding completed successfully")
	return nil
}

func (m *MetaMask) passwordSteps(password string) []wallets.Step {
	return []wallets.Step{
		m.fill(createNewPasswordInput, password),
		m.fill(confirmNewPasswordInput, password),
		m.click(confirmPasswordCheckbox),
		m.click(createPasswordButton),
	}
}

// recoveryPhraseSteps types the phrase word by word: the first word into the
// text area, the rest into the per-word inputs that appear after each Space.
func (m *MetaMask) recoveryPhraseSteps(phrase string) []wallets.Step {
	words := strings.Fields(phrase)
	steps := make([]wallets.Step, 0, len(words))
	for i, word := range words {
		id := secretRecoveryPhraseTextAreaInput
		if i > 0 {
			id = srpWordInput(i)
		}
		steps = append(steps, wallets.Step{Name: fmt.Sprintf("type word %d", i+1), Do: func() error {
			l := m.testID(id)
			if err := l.Fill(word); err != nil {
				return err
			}
			return l.Press("Space")
		}})
	}
	return steps
}

// Lock locks the wallet from the settings menu.
func (m *MetaMask) Lock(ctx context.Context) error {
	err := wallets.RunSteps(ctx,
		m.click(openSettingsButton),
		m.visible(settingsMenu),
		m.click(lockButton),
		m.visible(unlockPageTitle),
	)
	if err != nil {
		return fmt.Errorf("failed to lock metamask: %w", err)
	}
	return nil
}

// Unlock unlocks the wallet with password.
func (m *MetaMask) Unlock(ctx context.Context, password string) error {
	err := wallets.RunSteps(ctx,
		m.fill(unlockPasswordInput, password),
		m.click(unlockButton),
	)
	if err != nil {
		return fmt.Errorf("failed to unlock metamask: %w", err)
	}
	return nil
}

// AddAccount imports an account from a hex private key and renames it.
func (m *MetaMask) AddAccount(ctx context.Context, args wallets.AddAccountArgs) error {
	name := strings.TrimSpace(args.AccountName)
	if name == "" {
		return fmt.Errorf("account name cannot be an empty string")
	}
	key := strings.TrimPrefix(strings.TrimSpace(args.PrivateKey), "0x")
	if key == "" {
		return fmt.Errorf("private key cannot be an empty string")
	}
	if _, err := crypto.HexToECDSA(key); err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	page := m.page
	err := wallets.RunSteps(ctx,
		m.openAccountList(),
		m.click(addWalletButton),
		wallets.Step{Name: "wait for add wallet dialog", Do: func() error {
			return m.Wait.ExpectText(page.GetByRole(*playwright.AriaRoleDialog), addWalletText)
		}},
		m.click(importAccountButton),
		wallets.Step{Name: "fill private key", Do: func() error {
			return m.Wait.FillVisible(page.Locator(privateKeyInput), key)
		}},
		wallets.Step{Name: "confirm import", Do: func() error {
			return m.Wait.ClickEnabled(m.testID(importAccountConfirmButton))
		}},
		wallets.Step{Name: "rename imported account", Do: func() error {
			return m.renameSelected(name)
		}},
		wallets.Step{Name: "go back", Do: func() error {
			return page.Locator(backButton).First().Click()
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to add metamask account %q: %w", name, err)
	}
	return nil
}

func (m *MetaMask) renameSelected(name string) error {
	active := m.page.Locator("div:has(> div[data-testid^='multichain-account-cell-keyring'][data-testid$='-selected-indicator'])")
	text, err := active.TextContent()
	if err != nil {
		return err
	}
	current, _, _ := strings.Cut(text, "$")
	if current == "" {
		return nil
	}
	if err := m.Wait.ClickVisible(active.Locator(fmt.Sprintf("div[aria-label='%s options']", current))); err != nil {
		return err
	}
	if err := m.Wait.ClickVisible(m.page.Locator("div[aria-label='Rename']")); err != nil {
		return err
	}
	dialog := m.page.GetByRole(*playwright.AriaRoleDialog)
	if err := m.Wait.WaitVisible(dialog.GetByRole(*playwright.AriaRoleHeading, playwright.LocatorGetByRoleOptions{Name: renameHeading})); err != nil {
		return err
	}
	if err := m.Wait.FillVisible(dialog.GetByRole(*playwright.AriaRoleTextbox), name); err != nil {
		return err
	}
	return m.Wait.ClickEnabled(dialog.GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: confirmName}))
}

// SwitchAccount selects the account whose cell contains accountName.
func (m *MetaMask) SwitchAccount(ctx context.Context, accountName string) error {
	if current, err := m.testID(accountMenuButton).TextContent(); err == nil && current == accountName {
		return nil
	}
	var target playwright.Locator
	err := wallets.RunSteps(ctx,
		m.openAccountList(),
		wallets.Step{Name: "wait for account sync", Do: m.waitForSync},
		wallets.Step{Name: "find account", Do: func() error {
			cells, err := m.page.GetByTestId(accountCellTestID).All()
			if err != nil {
				return err
			}
			for _, cell := range cells {
				text, err := cell.TextContent()
				if err != nil {
					return err
				}
				if strings.Contains(text, accountName) {
					target = cell
					return nil
				}
			}
			return fmt.Errorf("account with name %q not found", accountName)
		}},
		wallets.Step{Name: "select account", Do: func() error { return target.Click() }},
	)
	if err != nil {
		return fmt.Errorf("failed to switch metamask account: %w", err)
	}
	return nil
}

func (m *MetaMask) openAccountList() wallets.Step {
	return wallets.Step{Name: "open account list", Do: func() error {
		if err := m.Wait.ClickVisible(m.testID(accountMenuButton)); err != nil {
			return err
		}
		return m.Wait.WaitVisible(m.page.GetByRole(*playwright.AriaRoleHeading, playwright.PageGetByRoleOptions{Name: accountsHeading}))
	}}
}

// waitForSync waits until the add-account button stops reporting that
// accounts are syncing.
func (m *MetaMask) waitForSync() error {
	l := m.testID(addMultichainAccountButton)
	interval := m.Wait.Interval
	if interval <= 0 {
		interval = wallets.DefaultWait.Interval
	}
	deadline := time.Now().Add(m.SyncTimeout)
	for {
		text, err := l.TextContent()
		if err != nil {
			return err
		}
		if !strings.Contains(text, "Syncing") {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("accounts still syncing after %s", m.SyncTimeout)
		}
		time.Sleep(interval)
	}
}
