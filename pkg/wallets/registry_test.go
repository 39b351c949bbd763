package wallets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, id := range IDs() {
		t.Run(id.String(), func(t *testing.T) {
			d, err := Lookup(id.String())
			require.NoError(t, err)
			assert.Equal(t, id, d.ID)
			assert.NotEmpty(t, d.DownloadURL)
			assert.NotEmpty(t, d.ExtensionName)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("keplr")
	require.Error(t, err)

	var unknown *UnknownWalletError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "keplr", unknown.ID)
	assert.Contains(t, err.Error(), "metamask, petra, phantom, solflare")
}

func TestLookup_DownloadURLOverride(t *testing.T) {
	t.Setenv("WALLET_PETRA_DOWNLOAD_URL", "http://127.0.0.1:9/petra.zip")

	d, err := Lookup("petra")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9/petra.zip", d.DownloadURL)

	// The override must not leak into the static table.
	assert.NotEqual(t, d.DownloadURL, registry[1].DownloadURL)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("metamask"))
	assert.True(t, IsSupported("solflare"))
	assert.False(t, IsSupported("MetaMask"))
	assert.False(t, IsSupported(""))
}

func TestAll_StableOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 4)
	assert.Equal(t, []ID{MetaMask, Petra, Phantom, Solflare}, IDs())
	for i, d := range all {
		assert.Equal(t, IDs()[i], d.ID)
	}
}

func TestOnboardingArgs_Validate(t *testing.T) {
	tests := []struct {
		name    string
		args    OnboardingArgs
		allowed []OnboardingMode
		wantErr string
	}{
		{
			name:    "create ok",
			args:    OnboardingArgs{Mode: ModeCreate, Password: "pw"},
			allowed: []OnboardingMode{ModeCreate, ModeImport},
		},
		{
			name:    "missing password",
			args:    OnboardingArgs{Mode: ModeCreate},
			allowed: []OnboardingMode{ModeCreate},
			wantErr: "password cannot be empty",
		},
		{
			name:    "mode not allowed",
			args:    OnboardingArgs{Mode: ModeImportPrivateKey, Password: "pw", PrivateKey: "0x1"},
			allowed: []OnboardingMode{ModeCreate, ModeImport},
			wantErr: "unsupported onboarding mode",
		},
		{
			name:    "import without phrase",
			args:    OnboardingArgs{Mode: ModeImport, Password: "pw"},
			allowed: []OnboardingMode{ModeImport},
			wantErr: "requires a secret recovery phrase",
		},
		{
			name:    "private key without key",
			args:    OnboardingArgs{Mode: ModeImportPrivateKey, Password: "pw"},
			allowed: []OnboardingMode{ModeImportPrivateKey},
			wantErr: "requires a private key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.args.Validate(tt.allowed...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunSteps(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Do: func() error {
			ran = append(ran, name)
			return err
		}}
	}

	err := RunSteps(context.Background(), step("a", nil), step("b", errors.New("boom")), step("c", nil))
	require.Error(t, err)
	assert.Equal(t, "b: boom", err.Error())
	assert.Equal(t, []string{"a", "b"}, ran)

	ran = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = RunSteps(ctx, step("a", nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestExtensionURL(t *testing.T) {
	assert.Equal(t, "chrome-extension://abc/home.html", ExtensionURL("abc", "home.html"))
}
