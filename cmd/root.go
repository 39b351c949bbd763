package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kernel/walletcache/internal/config"
	"github.com/kernel/walletcache/internal/logging"
	"github.com/kernel/walletcache/pkg/cache"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F6851B"))
	hintStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#5B8DEF"))
)

// logCloser is set by the root pre-run and closed after the command.
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "walletcache",
	Short: "Set up wallet extension caches for end-to-end testing of web3 applications",
	Long: bannerStyle.Render("walletcache") + `

Downloads wallet browser extensions, onboards them once in a persistent
Chromium profile and caches the result so end-to-end tests can start from a
ready wallet.`,
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("cache-dir", "", "Cache directory (default .wallet-cache, or WALLET_CACHE_DIR)")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON run logs to this file (or WALLET_LOG_FILE)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// initRuntime loads .env and applies the global flags.
func initRuntime(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		pterm.DisableColor()
	}
	if dir, _ := cmd.Flags().GetString("cache-dir"); dir != "" {
		// cache.Root and every reader resolve the root from the environment.
		if err := os.Setenv(cache.RootEnv, dir); err != nil {
			return err
		}
	}
	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		logFile = cfg.LogFile
	}
	logCloser = logging.Init(logFile, slog.LevelInfo)
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}
