package metamask

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernel/walletcache/pkg/wallets"
	"github.com/kernel/walletcache/pkg/wallets/wallettest"
)

const testPhrase = "test test test test test test test test test test test junk"

// newMetaMask returns automation for page that gives up on a UI element
// after a few milliseconds.
func newMetaMask(page *wallettest.Page) *MetaMask {
	m := New(page)
	m.Wait = wallets.WaitOptions{Timeout: 20 * time.Millisecond, Interval: time.Millisecond}
	m.SyncTimeout = 20 * time.Millisecond
	return m
}

func TestOnboard_Create(t *testing.T) {
	page := wallettest.NewPage("chrome-extension://id/home.html#onboarding")
	m := newMetaMask(page)

	err := m.Onboard(context.Background(), wallets.OnboardingArgs{Mode: wallets.ModeCreate, Password: "Tester@1234"})
	require.NoError(t, err)

	clicks := wallettest.Filter(page.Actions(), "click ")
	assert.Equal(t, []string{
		"click testid=onboarding-create-wallet",
		"click testid=onboarding-create-with-srp-button",
		"click testid=create-password-terms",
		"click testid=create-password-submit",
		"click testid=recovery-phrase-reveal",
		"click testid=recovery-phrase-remind-later",
		"click testid=metametrics-i-agree",
		"click testid=onboarding-complete-done",
	}, clicks)
	assert.True(t, page.Did("fill testid=create-password-new-input=Tester@1234"))
	assert.True(t, page.Did("fill testid=create-password-confirm-input=Tester@1234"))
	assert.True(t, page.Did("wait testid=eth-overview-receive"))
}

func TestOnboard_Import(t *testing.T) {
	page := wallettest.NewPage("chrome-extension://id/home.html#onboarding")
	page.Texts["testid=wallet-ready"] = "Your wallet is ready!"
	m := newMetaMask(page)

	err := m.Onboard(context.Background(), wallets.OnboardingArgs{
		Mode:                 wallets.ModeImport,
		Password:             "Tester@1234",
		SecretRecoveryPhrase: testPhrase,
	})
	require.NoError(t, err)

	assert.True(t, page.Did("fill testid=srp-input-import__srp-note=test"))
	assert.True(t, page.Did("press testid=srp-input-import__srp-note Space"))
	assert.True(t, page.Did("fill testid=import-srp__srp-word-11=junk"))
	assert.False(t, page.Did("fill testid=import-srp__srp-word-12=junk"))
	assert.Len(t, wallettest.Filter(page.Actions(), "press "), 12)
	assert.True(t, page.Did("click testid=import-srp-confirm"))
	assert.False(t, page.Did("click testid=onboarding-create-wallet"))
}

func TestOnboard_ImportWalletNeverReady(t *testing.T) {
	page := wallettest.NewPage("chrome-extension://id/home.html")
	page.Texts["testid=wallet-ready"] = "Loading"
	m := newMetaMask(page)

	err := m.Onboard(context.Background(), wallets.OnboardingArgs{
		Mode:                 wallets.ModeImport,
		Password:             "pw",
		SecretRecoveryPhrase: testPhrase,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for wallet ready")
	assert.Contains(t, err.Error(), `got "Loading"`)
}

func TestOnboard_RejectsUnsupportedMode(t *testing.T) {
	page := wallettest.NewPage("")
	err := newMetaMask(page).Onboard(context.Background(), wallets.OnboardingArgs{Mode: wallets.ModeImportPrivateKey, Password: "pw", PrivateKey: "k"})
	require.Error(t, err)
	assert.Empty(t, page.Actions())
}

func TestOnboard_StepFailure(t *testing.T) {
	page := wallettest.NewPage("")
	page.Errors["click testid=onboarding-create-with-srp-button"] = errors.New("detached")

	err := newMetaMask(page).Onboard(context.Background(), wallets.OnboardingArgs{Mode: wallets.ModeCreate, Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "click onboarding-create-with-srp-button: detached")
	assert.False(t, page.Did("fill testid=create-password-new-input=pw"))
}

func TestSwitchAccount_StillSyncing(t *testing.T) {
	page := wallettest.NewPage("")
	page.Texts["testid="+addMultichainAccountButton] = "Syncing accounts"

	start := time.Now()
	err := newMetaMask(page).SwitchAccount(context.Background(), "Account 2")
	assert.ErrorContains(t, err, "wait for account sync: accounts still syncing after 20ms")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, wallettest.Filter(page.Actions(), "click testid=^"))
}

func TestLockUnlock(t *testing.T) {
	page := wallettest.NewPage("")
	m := newMetaMask(page)

	require.NoError(t, m.Lock(context.Background()))
	assert.True(t, page.Did("click testid=global-menu-lock"))
	assert.True(t, page.Did("wait testid=unlock-page-title"))

	require.NoError(t, m.Unlock(context.Background(), "secret"))
	assert.True(t, page.Did("fill testid=unlock-password=secret"))
	assert.True(t, page.Did("click testid=unlock-submit"))
}

func TestAddAccount_Validation(t *testing.T) {
	m := newMetaMask(wallettest.NewPage(""))
	ctx := context.Background()

	err := m.AddAccount(ctx, wallets.AddAccountArgs{AccountName: " ", PrivateKey: "0x01"})
	assert.ErrorContains(t, err, "account name cannot be an empty string")

	err = m.AddAccount(ctx, wallets.AddAccountArgs{AccountName: "a", PrivateKey: ""})
	assert.ErrorContains(t, err, "private key cannot be an empty string")

	err = m.AddAccount(ctx, wallets.AddAccountArgs{AccountName: "a", PrivateKey: "0xnothex"})
	assert.ErrorContains(t, err, "invalid private key")
}

func TestAddAccount(t *testing.T) {
	page := wallettest.NewPage("")
	page.Texts["role=dialog"] = "Add wallet"
	m := newMetaMask(page)

	err := m.AddAccount(context.Background(), wallets.AddAccountArgs{
		AccountName: "Imported",
		PrivateKey:  "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	})
	require.NoError(t, err)

	assert.True(t, page.Did("click testid=account-list-add-wallet-button"))
	assert.True(t, page.Did("click testid=add-wallet-modal-import-account"))
	assert.True(t, page.Did("fill css=input[id='private-key-box']=ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"))
	assert.True(t, page.Did("click testid=import-account-confirm-button"))
	assert.True(t, page.Did("click css=button[aria-label='Back'] >> first"))
}

func TestSwitchAccount(t *testing.T) {
	page := wallettest.NewPage("")
	key := "testid=^multichain-account-cell-entropy:"
	page.Counts[key] = 2
	page.Texts[key+" >> nth=0"] = "Account 1$0.00"
	page.Texts[key+" >> nth=1"] = "Account 2$1.00"
	m := newMetaMask(page)

	require.NoError(t, m.SwitchAccount(context.Background(), "Account 2"))
	assert.True(t, page.Did("click "+key+" >> nth=1"))
	assert.False(t, page.Did("click "+key+" >> nth=0"))

	err := m.SwitchAccount(context.Background(), "Account 9")
	assert.ErrorContains(t, err, `account with name "Account 9" not found`)
}

func TestSwitchAccount_AlreadySelected(t *testing.T) {
	page := wallettest.NewPage("")
	page.Texts["testid=account-menu-icon"] = "Account 1"

	require.NoError(t, newMetaMask(page).SwitchAccount(context.Background(), "Account 1"))
	assert.Empty(t, wallettest.Filter(page.Actions(), "click "))
}

func TestIndexURL(t *testing.T) {
	assert.Equal(t, "chrome-extension://nacmplfodgmlifcimbokhbinifgmgceh/home.html", IndexURL("nacmplfodgmlifcimbokhbinifgmgceh"))
}
