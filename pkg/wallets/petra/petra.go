// Package petra automates the Petra (Aptos) extension UI.
package petra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/pterm/pterm"

	"github.com/kernel/walletcache/pkg/wallets"
)

const indexPath = "index.html"

// Selectors are the CSS selectors of the Petra UI. Petra ships without test
// ids, so the onboarding selectors are text based and may need adjusting for
// a new release.
type Selectors struct {
	CreateWalletButton      string
	ImportWalletButton      string
	CreateSeedPhraseButton  string
	ImportMnemonicButton    string
	ImportPrivateKeyButton  string
	PrivateKeyInput         string
	ImportButton            string
	NewPasswordInput        string
	ConfirmPasswordInput    string
	ConfirmPasswordCheckbox string
	ContinueButton          string
	SkipCopyPhraseButton    string
	GetStartedButton        string
	OnboardingCompleteText  string
	MnemonicInputNamePrefix string
	DepositButton           string
	SendButton              string
	SettingsMenu            string
	UnlockPasswordInput     string
	UnlockButton            string
}

// DefaultSelectors match the Petra release pinned by the wallet registry.
var DefaultSelectors = Selectors{
	CreateWalletButton:      "button:has-text('Create new wallet')",
	ImportWalletButton:      "button:has-text('Import wallet')",
	CreateSeedPhraseButton:  "button:has-text('Create seed phrase wallet')",
	ImportMnemonicButton:    "button:has-text('Import mnemonic')",
	ImportPrivateKeyButton:  "button:has-text('Import private key')",
	PrivateKeyInput:         "input[name='privateKey']",
	ImportButton:            "button:has-text('Import')",
	NewPasswordInput:        "input[name='initialPassword']",
	ConfirmPasswordInput:    "input[name='confirmPassword']",
	ConfirmPasswordCheckbox: "input[name='termsOfService']",
	ContinueButton:          "button:has-text('Continue')",
	SkipCopyPhraseButton:    "button:has-text('Skip')",
	GetStartedButton:        "button:has-text('Get started')",
	OnboardingCompleteText:  "text=You're all set!",
	MnemonicInputNamePrefix: "mnemonic-",
	DepositButton:           "button:has-text('Deposit')",
	SendButton:              "button:has-text('Send')",
	SettingsMenu:            "button[aria-label='Settings']",
	UnlockPasswordInput:     "input[name='password']",
	UnlockButton:            "button:has-text('Unlock')",
}

var (
	lockWalletName = regexp.MustCompile(`(?i)lock wallet`)
	welcomeHeading = regexp.MustCompile(`(?i)welcome`)
)

// DefaultSettleDelay is how long Petra needs after onboarding to persist its
// state before the browser may be closed.
const DefaultSettleDelay = 8 * time.Second

// Petra drives one Petra extension page.
type Petra struct {
	page        playwright.Page
	extensionID string
	sel         Selectors

	Wait        wallets.WaitOptions
	SettleDelay time.Duration
}

var (
	_ wallets.Onboarder = (*Petra)(nil)
	_ wallets.Locker    = (*Petra)(nil)
	_ wallets.Unlocker  = (*Petra)(nil)
)

// New returns automation for page. extensionID is used to navigate back to the
// wallet index once onboarding completes; it may be empty when the page URL
// already carries it.
func New(page playwright.Page, extensionID string) *Petra {
	return &Petra{
		page:        page,
		extensionID: extensionID,
		sel:         DefaultSelectors,
		Wait:        wallets.DefaultWait,
		SettleDelay: DefaultSettleDelay,
	}
}

// WithSelectors returns a copy of p using sel.
func (p *Petra) WithSelectors(sel Selectors) *Petra {
	c := *p
	c.sel = sel
	return &c
}

// IndexURL is the Petra home page for an extension id.
func IndexURL(extensionID string) string {
	return wallets.ExtensionURL(extensionID, indexPath)
}

func (p *Petra) css(sel string) playwright.Locator {
	return p.page.Locator(sel)
}

func (p *Petra) click(sel string) wallets.Step {
	return wallets.Step{Name: "click " + sel, Do: func() error { return p.Wait.ClickVisible(p.css(sel)) }}
}

func (p *Petra) clickEnabled(sel string) wallets.Step {
	return wallets.Step{Name: "click " + sel, Do: func() error { return p.Wait.ClickEnabled(p.css(sel)) }}
}

func (p *Petra) fill(sel, value string) wallets.Step {
	return wallets.Step{Name: "fill " + sel, Do: func() error { return p.Wait.FillVisible(p.css(sel), value) }}
}

func (p *Petra) visible(sel string) wallets.Step {
	return wallets.Step{Name: "wait for " + sel, Do: func() error { return p.Wait.WaitVisible(p.css(sel)) }}
}

// Onboard creates a wallet or imports one from a mnemonic or a private key.
func (p *Petra) Onboard(ctx context.Context, args wallets.OnboardingArgs) error {
	if err := args.Validate(wallets.ModeCreate, wallets.ModeImportMnemonic, wallets.ModeImportPrivateKey); err != nil {
		return fmt.Errorf("petra: %w", err)
	}
	pterm.Info.Println("Petra onboarding started...")

	s := p.sel
	var steps []wallets.Step
	switch args.Mode {
	case wallets.ModeCreate:
		steps = append(steps,
			p.click(s.CreateWalletButton),
			p.click(s.CreateSeedPhraseButton),
		)
		steps = append(steps, p.passwordSteps(args.Password, false)...)
		steps = append(steps, p.click(s.SkipCopyPhraseButton))
	case wallets.ModeImportPrivateKey:
		steps = append(steps,
			p.click(s.ImportWalletButton),
			p.click(s.ImportPrivateKeyButton),
			p.fill(s.PrivateKeyInput, args.PrivateKey),
			p.clickEnabled(s.ImportButton),
		)
		steps = append(steps, p.passwordSteps(args.Password, true)...)
	case wallets.ModeImportMnemonic:
		steps = append(steps,
			p.click(s.ImportWalletButton),
			p.click(s.ImportMnemonicButton),
			wallets.Step{Name: "wait for mnemonic form", Do: func() error {
				return p.Wait.WaitVisible(p.page.GetByText("Enter your Secret Recovery Phrase"))
			}},
		)
		for i, word := range strings.Fields(args.SecretRecoveryPhrase) {
			sel := fmt.Sprintf("input[name=%q]", mnemonicInputName(s.MnemonicInputNamePrefix, i))
			steps = append(steps, wallets.Step{Name: fmt.Sprintf("type word %d", i+1), Do: func() error {
				return p.css(sel).Fill(word)
			}})
		}
		steps = append(steps, p.clickEnabled(s.ContinueButton))
		steps = append(steps, p.passwordSteps(args.Password, true)...)
	}
	steps = append(steps,
		p.click(s.GetStartedButton),
		p.visible(s.OnboardingCompleteText),
		wallets.Step{Name: "open wallet index", Do: p.gotoIndex},
		p.visible(s.DepositButton),
		p.visible(s.SendButton),
	)

	if err := wallets.RunSteps(ctx, steps...); err != nil {
		return fmt.Errorf("petra onboarding failed: %w", err)
	}

	t := time.NewTimer(p.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	pterm.Success.Println("Petra onboarding completed successfully")
	return nil
}

// mnemonicInputName names the i-th mnemonic input: mnemonic-a, mnemonic-b...
func mnemonicInputName(prefix string, i int) string {
	return prefix + string(rune('a'+i))
}

func (p *Petra) passwordSteps(password string, waitEnabled bool) []wallets.Step {
	s := p.sel
	cont := p.click(s.ContinueButton)
	if waitEnabled {
		cont = p.clickEnabled(s.ContinueButton)
	}
	return []wallets.Step{
		p.fill(s.NewPasswordInput, password),
		p.fill(s.ConfirmPasswordInput, password),
		p.click(s.ConfirmPasswordCheckbox),
		cont,
	}
}

func (p *Petra) gotoIndex() error {
	id := p.extensionID
	if id == "" {
		id = extensionIDFromURL(p.page.URL())
	}
	if id == "" {
		return fmt.Errorf("cannot determine petra extension id from %q", p.page.URL())
	}
	_, err := p.page.Goto(IndexURL(id))
	return err
}

func extensionIDFromURL(u string) string {
	rest, ok := strings.CutPrefix(u, "chrome-extension://")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// Lock locks the wallet from the settings page.
func (p *Petra) Lock(ctx context.Context) error {
	err := wallets.RunSteps(ctx,
		p.click(p.sel.SettingsMenu),
		wallets.Step{Name: "wait for settings", Do: func() error {
			return p.Wait.WaitVisible(p.page.GetByText("Settings").First())
		}},
		wallets.Step{Name: "click lock wallet", Do: func() error {
			return p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: lockWalletName}).Click()
		}},
		wallets.Step{Name: "wait for unlock page", Do: func() error {
			return p.Wait.WaitVisible(p.page.GetByRole(*playwright.AriaRoleHeading, playwright.PageGetByRoleOptions{Name: welcomeHeading}))
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to lock petra: %w", err)
	}
	return nil
}

// Unlock unlocks the wallet with password.
func (p *Petra) Unlock(ctx context.Context, password string) error {
	err := wallets.RunSteps(ctx,
		p.fill(p.sel.UnlockPasswordInput, password),
		p.click(p.sel.UnlockButton),
		p.visible(p.sel.DepositButton),
	)
	if err != nil {
		return fmt.Errorf("failed to unlock petra: %w", err)
	}
	return nil
}
