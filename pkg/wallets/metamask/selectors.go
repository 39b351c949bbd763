package metamask

import "strconv"

// Test ids used by the MetaMask extension UI.
const (
	createWalletButton                    = "onboarding-create-wallet"
	importWalletButton                    = "onboarding-import-wallet"
	useSecretRecoveryPhraseButton         = "onboarding-create-with-srp-button"
	createNewPasswordInput                = "create-password-new-input"
	confirmNewPasswordInput               = "create-password-confirm-input"
	confirmPasswordCheckbox               = "create-password-terms"
	createPasswordButton                  = "create-password-submit"
	revealSecretRecoveryPhraseButton      = "recovery-phrase-reveal"
	recoveryPhraseRemindMeLaterButton     = "recovery-phrase-remind-later"
	metamaskMetricsIAgreeButton           = "metametrics-i-agree"
	onboardingDoneButton                  = "onboarding-complete-done"
	importUsingSecretRecoveryPhraseButton = "onboarding-import-with-srp-button"
	secretRecoveryPhraseTextAreaInput     = "srp-input-import__srp-note"
	importWalletConfirmButton             = "import-srp-confirm"
	walletReadyBox                        = "wallet-ready"

	buyButton          = "eth-overview-buy"
	swapButton         = "eth-overview-swap"
	sendButton         = "eth-overview-send"
	receiveButton      = "eth-overview-receive"
	openSettingsButton = "account-options-menu-button"
	accountMenuButton  = "account-menu-icon"

	settingsMenu   = "global-menu"
	lockButton     = "global-menu-lock"
	networksButton = "global-menu-networks"

	unlockPasswordInput = "unlock-password"
	unlockButton        = "unlock-submit"
	unlockPageTitle     = "unlock-page-title"

	addWalletButton            = "account-list-add-wallet-button"
	importAccountButton        = "add-wallet-modal-import-account"
	importAccountConfirmButton = "import-account-confirm-button"
	addMultichainAccountButton = "add-multichain-account-button"

	privateKeyInput = "input[id='private-key-box']"
	backButton      = "button[aria-label='Back']"
)

// srpWordInput is the test id of the i-th recovery phrase input. The first
// word goes into the text area instead.
func srpWordInput(i int) string {
	return "import-srp__srp-word-" + strconv.Itoa(i)
}
