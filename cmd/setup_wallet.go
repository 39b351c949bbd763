package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/kernel/walletcache/internal/cachebuild"
	"github.com/kernel/walletcache/internal/config"
	"github.com/kernel/walletcache/internal/download"
	"github.com/kernel/walletcache/internal/logging"
	"github.com/kernel/walletcache/pkg/browser"
	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/setup"
	"github.com/kernel/walletcache/pkg/wallets"
)

// SetupResolver loads the setup descriptors of a directory.
type SetupResolver interface {
	Resolve(dir string, sel setup.Selection) ([]setup.Descriptor, error)
}

// CacheBuilder builds one wallet cache entry.
type CacheBuilder interface {
	CreateCache(ctx context.Context, in cachebuild.CreateInput) (cachebuild.Result, error)
}

// SetupWalletCmd handles the setup-wallet command.
type SetupWalletCmd struct {
	resolver SetupResolver
	builder  CacheBuilder

	// prompt asks for a selection when no wallet flag is given.
	prompt func() (setup.Selection, error)
	logger *slog.Logger
}

// SetupWalletInput holds input for a setup run.
type SetupWalletInput struct {
	Dir       string
	Selection setup.Selection
	Force     bool
	Headless  bool
}

// selectionFlags are checked in this order; the first one set wins.
var selectionFlags = []struct {
	name  string
	sel   setup.Selection
	short string
	usage string
}{
	{"all", setup.SelectAll, "a", "Setup all wallets"},
	{"metamask", setup.SelectWallet(wallets.MetaMask), "m", "Setup MetaMask"},
	{"solflare", setup.SelectWallet(wallets.Solflare), "s", "Setup Solflare"},
	{"petra", setup.SelectWallet(wallets.Petra), "", "Setup Petra (--pt)"},
	{"phantom", setup.SelectWallet(wallets.Phantom), "", "Setup Phantom (--ph)"},
}

// flagAliases are long-form aliases that pflag cannot express as shorthands.
var flagAliases = map[string]string{
	"pt": "petra",
	"ph": "phantom",
}

var setupWalletCmd = &cobra.Command{
	Use:   "setup-wallet [dir]",
	Short: "Build the wallet cache from the setup files in dir",
	Long: `Build the wallet cache from the setup files in dir.

Setup files are named <wallet>[-variant].setup.{ts,js,mjs,yaml,yml,toml,json}.
For every matching file the wallet extension is downloaded, loaded into a
fresh Chromium profile and onboarded; the profile, extension id, extension
path and password are cached for the test fixtures. A .ts, .js or .mjs file
only marks its stem; its setup must be registered with setup.Register.

The directory defaults to WALLET_SETUP_DIR, or test/wallet-setup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetupWallet,
}

func init() {
	flags := setupWalletCmd.Flags()
	flags.Bool("headless", false, "Build cache in headless browser mode. Alternatively, set the HEADLESS env variable to true")
	flags.BoolP("force", "f", false, "Force the creation of cache even if it already exists")
	for _, f := range selectionFlags {
		flags.BoolP(f.name, f.short, false, f.usage)
	}
	flags.SetNormalizeFunc(normalizeSetupFlag)

	rootCmd.AddCommand(setupWalletCmd)
}

func normalizeSetupFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

// Run resolves the setup files and builds a cache entry per descriptor. A
// failing wallet is reported and skipped; a download failure aborts the run.
func (c SetupWalletCmd) Run(ctx context.Context, in SetupWalletInput) error {
	sel := in.Selection
	if sel == "" {
		if c.prompt == nil {
			return fmt.Errorf("no wallet selected: pass --all or a wallet flag")
		}
		var err error
		if sel, err = c.prompt(); err != nil {
			return err
		}
	}

	descriptors, err := c.resolver.Resolve(in.Dir, sel)
	if err != nil {
		return err
	}

	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return err
		}
		pterm.Println()
		pterm.Info.Printf("Setting up cache for %s...\n", d.WalletName)

		w, err := wallets.Lookup(string(d.WalletName))
		if err != nil {
			return err
		}
		res, err := c.builder.CreateCache(ctx, cachebuild.CreateInput{
			Wallet:   w,
			Setup:    d,
			FileList: d.FileList,
			Force:    in.Force,
			Headless: in.Headless,
		})
		if err != nil {
			if fatal := c.reportFailure(ctx, d, err); fatal != nil {
				return fatal
			}
			continue
		}

		c.log().Info("wallet cache ready",
			"wallet", string(d.WalletName),
			"file", d.FilePath,
			"status", res.Status.String(),
			"profile", res.ProfileDir,
			"extension_id", res.ExtensionID,
		)
		switch res.Status {
		case cachebuild.StatusAlreadyProvisioned:
			pterm.Info.Printf("%s cache already exists at %s, skipping\n", d.WalletName, res.ProfileDir)
		default:
			pterm.Success.Printf("%s cache created at %s\n", d.WalletName, res.ProfileDir)
		}
	}
	return nil
}

// reportFailure prints a per-wallet failure and returns the error when it
// must stop the whole run.
func (c SetupWalletCmd) reportFailure(ctx context.Context, d setup.Descriptor, err error) error {
	c.log().Error("wallet cache failed", "wallet", string(d.WalletName), "file", d.FilePath, "error", err.Error())

	var dlErr *download.Error
	var conflict *cachebuild.ProfileConflictError
	switch {
	case errors.As(err, &dlErr):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &conflict), strings.Contains(err.Error(), "directory already exists"):
		lines := strings.Split(err.Error(), "\n")
		pterm.Warning.Println(lines[0])
		for _, l := range lines[1:] {
			pterm.Println(hintStyle.Render(l))
		}
	default:
		pterm.Error.Printf("❌ Failed to setup cache for %s: %v\n", d.WalletName, err)
	}
	return nil
}

func (c SetupWalletCmd) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.New("setup-wallet")
}

// promptSelection asks for a wallet on an interactive terminal.
func promptSelection() (setup.Selection, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no wallet selected and stdin is not a terminal: pass --all or a wallet flag")
	}
	options := []string{"All"}
	values := []setup.Selection{setup.SelectAll}
	for _, d := range wallets.All() {
		options = append(options, d.ExtensionName)
		values = append(values, setup.SelectWallet(d.ID))
	}
	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultOption("All").
		Show("Select the wallet you want to setup")
	if err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	for i, o := range options {
		if o == choice {
			return values[i], nil
		}
	}
	return "", fmt.Errorf("unknown selection %q", choice)
}

// selectionFromFlags returns the first wallet selection flag that is set.
func selectionFromFlags(flags *pflag.FlagSet) setup.Selection {
	for _, f := range selectionFlags {
		if on, _ := flags.GetBool(f.name); on {
			return f.sel
		}
	}
	return ""
}

func runSetupWallet(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	dir := cfg.SetupDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return fmt.Errorf("failed to resolve setup directory: %w", err)
	}

	headless := cfg.Headless
	if cmd.Flags().Changed("headless") {
		headless, _ = cmd.Flags().GetBool("headless")
	}
	force, _ := cmd.Flags().GetBool("force")

	resolver := setup.NewResolver()
	resolver.OnDuplicate = func(kept, dropped string) {
		pterm.Warning.Printf("Skipping %s: same content as %s\n", dropped, kept)
	}

	chromium := &browser.Chromium{}
	defer chromium.Stop()

	c := SetupWalletCmd{
		resolver: resolver,
		builder:  cachebuild.New(cache.NewStore(cfg.CacheDir), chromium),
		prompt:   promptSelection,
	}
	return c.Run(cmd.Context(), SetupWalletInput{
		Dir:       dir,
		Selection: selectionFromFlags(cmd.Flags()),
		Force:     force,
		Headless:  headless,
	})
}
