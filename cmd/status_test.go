package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernel/walletcache/pkg/cache"
	"github.com/kernel/walletcache/pkg/wallets"
)

func statusServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.zip":
			w.WriteHeader(http.StatusOK)
		case "/moved.zip":
			http.Redirect(w, r, "/ok.zip", http.StatusFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStatus_JSON(t *testing.T) {
	srv := statusServer(t)
	t.Setenv("WALLET_METAMASK_DOWNLOAD_URL", srv.URL+"/ok.zip")
	t.Setenv("WALLET_PETRA_DOWNLOAD_URL", srv.URL+"/moved.zip")
	t.Setenv("WALLET_PHANTOM_DOWNLOAD_URL", srv.URL+"/gone.zip")
	t.Setenv("WALLET_SOLFLARE_DOWNLOAD_URL", "http://127.0.0.1:0/unreachable.zip")

	store := cache.NewStore(t.TempDir())
	seedEntry(t, store, wallets.MetaMask)
	require.NoError(t, store.Commit(wallets.Petra, cache.Artifacts{ExtensionID: "x", ExtensionPath: "/p", Password: "pw"}))

	var out bytes.Buffer
	c := StatusCmd{store: store, http: srv.Client(), out: &out}
	require.NoError(t, c.Status(context.Background(), StatusInput{Output: "json"}))

	var got []walletStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 4)

	byWallet := map[string]walletStatus{}
	for _, st := range got {
		byWallet[st.Wallet] = st
	}
	assert.Equal(t, "ready", byWallet["metamask"].Cache)
	assert.Equal(t, "reachable", byWallet["metamask"].Download)
	assert.Equal(t, srv.URL+"/ok.zip", byWallet["metamask"].DownloadURL)

	assert.Equal(t, "partial", byWallet["petra"].Cache, "an id without a profile is not ready")
	assert.Equal(t, "reachable", byWallet["petra"].Download)

	assert.Equal(t, "missing", byWallet["phantom"].Cache)
	assert.Equal(t, "http_404", byWallet["phantom"].Download)

	assert.Equal(t, "unreachable", byWallet["solflare"].Download)
}

func TestStatus_Offline(t *testing.T) {
	setupStdoutCapture(t)
	store := cache.NewStore(t.TempDir())
	seedEntry(t, store, wallets.Solflare)

	c := StatusCmd{store: store, http: &http.Client{Transport: failingTransport{t}}}
	require.NoError(t, c.Status(context.Background(), StatusInput{Offline: true}))

	out := outBuf.String()
	assert.Contains(t, out, "solflare")
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "Not cached")
	assert.Contains(t, out, "Unchecked")
}

func TestStatus_RejectsUnknownOutput(t *testing.T) {
	c := StatusCmd{store: cache.NewStore(t.TempDir())}
	assert.ErrorContains(t, c.Status(context.Background(), StatusInput{Output: "table"}), "unsupported --output")
}

type failingTransport struct{ t *testing.T }

func (f failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected request to %s", r.URL)
	return nil, http.ErrServerClosed
}
