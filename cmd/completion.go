package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for walletcache.

To load completions:

Bash:
  $ source <(walletcache completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ walletcache completion bash > /etc/bash_completion.d/walletcache
  # macOS:
  $ walletcache completion bash > $(brew --prefix)/etc/bash_completion.d/walletcache

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ walletcache completion zsh > "${fpath[1]}/_walletcache"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ walletcache completion fish | source

  # To load completions for each session, execute once:
  $ walletcache completion fish > ~/.config/fish/completions/walletcache.fish

PowerShell:
  PS> walletcache completion powershell | Out-String | Invoke-Expression

Wallet names complete for the cache subcommands.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
