package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/util"
	"github.com/kernel/walletcache/pkg/wallets"
)

// CacheCmd handles the cache subcommands.
type CacheCmd struct {
	store *cache.Store
	out   io.Writer
}

func (c CacheCmd) writer() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// CacheShowInput holds input for showing cache entries.
type CacheShowInput struct {
	Wallets []wallets.ID
	Output  string
}

// Show prints the state of each selected cache entry.
func (c CacheCmd) Show(ctx context.Context, in CacheShowInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	ids := in.Wallets
	if len(ids) == 0 {
		ids = wallets.IDs()
	}

	statuses := make([]cache.EntryStatus, 0, len(ids))
	for _, id := range ids {
		st, err := c.store.Status(id)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(c.writer(), statuses)
	}

	if !lo.ContainsBy(statuses, func(st cache.EntryStatus) bool { return st.Exists }) {
		pterm.Warning.Println("No wallet cache found. Run setup-wallet first.")
		return nil
	}

	pterm.Info.Printf("Cache root: %s\n", c.store.Root)
	rows := pterm.TableData{{"Wallet", "Extension", "Profiles", "Extension ID", "Extension Path"}}
	for _, st := range statuses {
		rows = append(rows, []string{
			string(st.Wallet),
			util.YesNo(st.Extension),
			util.JoinOrDash(st.Profiles...),
			util.OrDash(st.ExtensionID),
			util.OrDash(st.ExtensionPath),
		})
	}
	PrintTableNoPad(rows, true)

	if !lo.ContainsBy(statuses, func(st cache.EntryStatus) bool { return st.ExtensionID != "" }) {
		pterm.Warning.Println("No wallet cache is ready yet. Run setup-wallet to finish it.")
	}
	return nil
}

// Path prints the cache entry directory of a wallet.
func (c CacheCmd) Path(ctx context.Context, id wallets.ID) error {
	_, err := fmt.Fprintln(c.writer(), c.store.EntryDir(id))
	return err
}

// CacheCleanInput holds input for removing cache entries.
type CacheCleanInput struct {
	Wallets []wallets.ID
	All     bool
}

// Clean removes cache entries.
func (c CacheCmd) Clean(ctx context.Context, in CacheCleanInput) error {
	ids := in.Wallets
	if in.All {
		ids = wallets.IDs()
	}
	if len(ids) == 0 {
		return fmt.Errorf("no wallet given: pass a wallet name or --all")
	}
	for _, id := range ids {
		if err := c.store.Remove(id); err != nil {
			return err
		}
		pterm.Success.Printf("Removed %s cache\n", id)
	}
	return nil
}

// CacheExportInput holds input for archiving a cache entry.
type CacheExportInput struct {
	Wallet  wallets.ID
	Dest    string
	Verbose bool
}

// Export archives a wallet's cache entry without the browser's own caches.
func (c CacheCmd) Export(ctx context.Context, in CacheExportInput) error {
	src := c.store.EntryDir(in.Wallet)
	if !c.store.HasExtensionID(in.Wallet) {
		return &cache.ArtifactNotFoundError{Wallet: in.Wallet, File: cache.ExtensionIDFile}
	}
	dest, err := filepath.Abs(in.Dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	if within(src, dest) {
		return fmt.Errorf("destination %s is inside the cache entry", dest)
	}

	stats, err := util.ZipDirectory(src, dest, &util.ZipOptions{
		ExcludeDirectories:      util.ProfileExclusions.ExcludeDirectory,
		ExcludeFilenamePatterns: util.ProfileExclusions.ExcludeFilenamePatterns,
		Verbose:                 in.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to export %s cache: %w", in.Wallet, err)
	}
	for _, p := range stats.ExcludedPaths {
		pterm.Debug.Printf("excluded %s\n", p)
	}
	pterm.Success.Printf("Exported %s cache to %s (%d files, %s; %d excluded)\n",
		in.Wallet, dest, stats.FilesIncluded, util.FormatBytes(stats.BytesIncluded), stats.FilesExcluded)
	return nil
}

// CacheImportInput holds input for restoring a cache entry.
type CacheImportInput struct {
	Wallet  wallets.ID
	Archive string
	Force   bool
}

// Import restores an exported cache entry. The stored extension path is
// rewritten because the archive may come from another machine or root.
func (c CacheCmd) Import(ctx context.Context, in CacheImportInput) error {
	entry := c.store.EntryDir(in.Wallet)
	if _, err := os.Stat(entry); err == nil {
		if !in.Force {
			return fmt.Errorf("%s cache already exists at %s: use --force to replace it", in.Wallet, entry)
		}
		if err := c.store.Remove(in.Wallet); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check cache entry: %w", err)
	}

	if err := util.Unzip(in.Archive, entry); err != nil {
		c.store.Remove(in.Wallet)
		return fmt.Errorf("failed to import %s cache: %w", in.Wallet, err)
	}

	extID, err := c.store.ExtensionID(in.Wallet)
	if err != nil {
		c.store.Remove(in.Wallet)
		return fmt.Errorf("archive is not a %s cache: %w", in.Wallet, err)
	}
	password, err := c.store.Password(in.Wallet)
	if err != nil {
		c.store.Remove(in.Wallet)
		return fmt.Errorf("archive is not a %s cache: %w", in.Wallet, err)
	}
	extPath, err := filepath.Abs(c.store.ExtensionDir(in.Wallet))
	if err != nil {
		return err
	}
	if err := c.store.Commit(in.Wallet, cache.Artifacts{ExtensionID: extID, ExtensionPath: extPath, Password: password}); err != nil {
		return err
	}
	pterm.Success.Printf("Imported %s cache into %s\n", in.Wallet, entry)
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the wallet cache",
}

var cacheShowCmd = &cobra.Command{
	Use:       "show [wallet...]",
	Short:     "Show cached wallets",
	ValidArgs: wallets.Names(),
	Args:      cobra.OnlyValidArgs,
	RunE:      runCacheShow,
}

var cachePathCmd = &cobra.Command{
	Use:       "path <wallet>",
	Short:     "Print the cache directory of a wallet",
	ValidArgs: wallets.Names(),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runCachePath,
}

var cacheCleanCmd = &cobra.Command{
	Use:       "clean [wallet...]",
	Short:     "Remove cached wallets",
	ValidArgs: wallets.Names(),
	Args:      cobra.OnlyValidArgs,
	RunE:      runCacheClean,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export <wallet> <archive.zip>",
	Short: "Archive a wallet cache entry, e.g. to restore it on CI",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheExport,
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <wallet> <archive.zip>",
	Short: "Restore a wallet cache entry from an archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheImport,
}

func init() {
	cacheShowCmd.Flags().StringP("output", "o", "", "Output format (json)")
	cacheCleanCmd.Flags().BoolP("all", "a", false, "Remove every wallet cache")
	cacheExportCmd.Flags().BoolP("verbose", "v", false, "List excluded files")
	cacheImportCmd.Flags().BoolP("force", "f", false, "Replace an existing cache entry")

	cacheCmd.AddCommand(cacheShowCmd, cachePathCmd, cacheCleanCmd, cacheExportCmd, cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}

func newCacheCmd() (CacheCmd, error) {
	store, err := cache.DefaultStore()
	if err != nil {
		return CacheCmd{}, err
	}
	return CacheCmd{store: store}, nil
}

func parseWallets(args []string) ([]wallets.ID, error) {
	ids := make([]wallets.ID, 0, len(args))
	for _, a := range args {
		id, err := wallets.ParseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	c, err := newCacheCmd()
	if err != nil {
		return err
	}
	ids, err := parseWallets(args)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return c.Show(cmd.Context(), CacheShowInput{Wallets: ids, Output: output})
}

func runCachePath(cmd *cobra.Command, args []string) error {
	c, err := newCacheCmd()
	if err != nil {
		return err
	}
	id, err := wallets.ParseID(args[0])
	if err != nil {
		return err
	}
	return c.Path(cmd.Context(), id)
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	c, err := newCacheCmd()
	if err != nil {
		return err
	}
	ids, err := parseWallets(args)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	return c.Clean(cmd.Context(), CacheCleanInput{Wallets: ids, All: all})
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	c, err := newCacheCmd()
	if err != nil {
		return err
	}
	id, err := wallets.ParseID(args[0])
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	return c.Export(cmd.Context(), CacheExportInput{Wallet: id, Dest: args[1], Verbose: verbose})
}

func runCacheImport(cmd *cobra.Command, args []string) error {
	c, err := newCacheCmd()
	if err != nil {
		return err
	}
	id, err := wallets.ParseID(args[0])
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	return c.Import(cmd.Context(), CacheImportInput{Wallet: id, Archive: args[1], Force: force})
}
