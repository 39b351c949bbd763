package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/util"
	"github.com/kernel/walletcache/pkg/wallets"
)

type walletStatus struct {
	Wallet      string `json:"wallet"`
	Cache       string `json:"cache"`
	DownloadURL string `json:"download_url"`
	Download    string `json:"download"`
}

// StatusCmd reports, per wallet, whether a cache entry is ready and whether
// the extension download is reachable.
type StatusCmd struct {
	store *cache.Store
	http  *http.Client
	out   io.Writer
}

// StatusInput holds input for the status command.
type StatusInput struct {
	Output  string
	Offline bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the wallet cache and extension downloads",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
	statusCmd.Flags().Bool("offline", false, "Skip checking the download URLs")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	offline, _ := cmd.Flags().GetBool("offline")

	store, err := cache.DefaultStore()
	if err != nil {
		return err
	}
	c := StatusCmd{store: store, http: &http.Client{Timeout: 10 * time.Second}}
	return c.Status(cmd.Context(), StatusInput{Output: output, Offline: offline})
}

// Status checks every supported wallet.
func (c StatusCmd) Status(ctx context.Context, in StatusInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	var statuses []walletStatus
	for _, d := range wallets.All() {
		st := walletStatus{Wallet: string(d.ID), DownloadURL: d.DownloadURL, Download: "unchecked"}

		entry, err := c.store.Status(d.ID)
		if err != nil {
			return err
		}
		st.Cache = cacheState(entry)

		if !in.Offline {
			st.Download = c.checkDownload(ctx, d.DownloadURL)
		}
		statuses = append(statuses, st)
	}

	if in.Output == "json" {
		out := c.out
		if out == nil {
			out = os.Stdout
		}
		return util.PrintPrettyJSON(out, statuses)
	}

	printStatus(statuses)
	return nil
}

func cacheState(st cache.EntryStatus) string {
	switch {
	case !st.Exists:
		return "missing"
	case st.ExtensionID != "" && len(st.Profiles) > 0:
		return "ready"
	default:
		return "partial"
	}
}

func (c StatusCmd) checkDownload(ctx context.Context, url string) string {
	client := c.http
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "unreachable"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "unreachable"
	}
	resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return "reachable"
	}
	return fmt.Sprintf("http_%d", resp.StatusCode)
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	"ready":       {label: "Ready", rgb: pterm.NewRGB(31, 163, 130)},
	"reachable":   {label: "Reachable", rgb: pterm.NewRGB(31, 163, 130)},
	"partial":     {label: "Partial", rgb: pterm.NewRGB(245, 158, 11)},
	"missing":     {label: "Not cached", rgb: pterm.NewRGB(128, 128, 128)},
	"unchecked":   {label: "Unchecked", rgb: pterm.NewRGB(128, 128, 128)},
	"unreachable": {label: "Unreachable", rgb: pterm.NewRGB(239, 68, 68)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	// http_<code>
	return status, pterm.NewRGB(242, 85, 51)
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(statuses []walletStatus) {
	pterm.Println()
	for _, st := range statuses {
		cacheLabel, cacheColor := getStatusDisplay(st.Cache)
		dlLabel, dlColor := getStatusDisplay(st.Download)
		pterm.Printf("  %s %-10s cache: %-12s %s download: %s\n",
			coloredDot(cacheColor), st.Wallet, cacheLabel, coloredDot(dlColor), dlLabel)
	}
	pterm.Println()
}
