package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/auth"
	"github.com/unbekanntes-pferd/dcadmin/internal/commands"
	"github.com/unbekanntes-pferd/dcadmin/internal/config"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// isolate points the config lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"DCADMIN_BASE_URL", "DCADMIN_CLIENT_ID", "DCADMIN_CLIENT_SECRET",
		"DCADMIN_FORMAT", "DCADMIN_NO_KEYRING", "DCADMIN_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func testDeps(t *testing.T) (appctx.Deps, *bytes.Buffer) {
	t.Helper()
	vault, err := auth.OpenVault(auth.VaultOptions{NoKeyring: true, FallbackDir: t.TempDir()})
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer
	return appctx.Deps{
		Vault:  vault,
		Open:   func(string) error { return nil },
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout
}

func decodeError(t *testing.T, b *bytes.Buffer) output.ErrorResponse {
	t.Helper()
	var resp output.ErrorResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp), "stdout: %s", b.String())
	return resp
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd(appctx.Deps{})

	for _, name := range []string{"auth", "customer", "events", "permissions", "users", "groups", "shell", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"json", "yaml", "quiet", "styled", "ids-only", "count", "url", "verbose", "stats", "no-keyring"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRunVersion(t *testing.T) {
	isolate(t)
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"version"}, deps)

	assert.Equal(t, output.ExitOK, code)
	assert.Contains(t, stdout.String(), "dcadmin version")
}

func TestRunUnknownFlag(t *testing.T) {
	isolate(t)
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"customer", "--bogus"}, deps)

	assert.Equal(t, output.ExitUsage, code)
	resp := decodeError(t, stdout)
	assert.Equal(t, output.CodeUsage, resp.Code)
	assert.Equal(t, "Unknown option: --bogus", resp.Error)
}

func TestRunWithoutServer(t *testing.T) {
	isolate(t)
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"customer", "--json"}, deps)

	assert.Equal(t, output.ExitUsage, code)
	resp := decodeError(t, stdout)
	assert.Equal(t, output.CodeUsage, resp.Code)
	assert.Contains(t, resp.Hint, "--url")
}

func TestRunWithoutStoredToken(t *testing.T) {
	isolate(t)
	t.Setenv("DCADMIN_CLIENT_ID", "client")
	t.Setenv("DCADMIN_CLIENT_SECRET", "secret")
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"customer", "--url", "dracoon.example.com"}, deps)

	assert.Equal(t, output.ExitAuth, code)
	assert.Equal(t, output.CodeAuth, decodeError(t, stdout).Code)
}

func TestRunAuthStatusUsesURLFlag(t *testing.T) {
	isolate(t)
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"auth", "status", "--url", "dracoon.example.com", "--json"}, deps)

	require.Equal(t, output.ExitOK, code, stdout.String())
	var resp struct {
		OK   bool        `json:"ok"`
		Data auth.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "https://dracoon.example.com", resp.Data.Server)
	assert.False(t, resp.Data.StoredToken)
}

func TestRunRejectsInvalidStatus(t *testing.T) {
	isolate(t)
	t.Setenv("DCADMIN_BASE_URL", "https://dracoon.example.com")
	deps, stdout := testDeps(t)

	code := Run(context.Background(), []string{"events", "list", "--status", "sometimes"}, deps)

	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, decodeError(t, stdout).Error, "invalid status")
}

func TestFallbackFormat(t *testing.T) {
	tests := []struct {
		name string
		set  []string
		want output.Format
	}{
		{"none", nil, output.FormatAuto},
		{"json", []string{"json"}, output.FormatJSON},
		{"yaml", []string{"yaml"}, output.FormatYAML},
		{"styled", []string{"styled"}, output.FormatStyled},
		{"quiet beats json", []string{"quiet", "json"}, output.FormatQuiet},
		{"count beats quiet", []string{"count", "quiet"}, output.FormatCount},
		{"ids beats all", []string{"ids-only", "count", "json"}, output.FormatIDs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags appctx.GlobalFlags
			pf := pflag.NewFlagSet("test", pflag.ContinueOnError)
			registerGlobalFlags(pf, &flags)
			for _, f := range tt.set {
				require.NoError(t, pf.Set(f, "true"))
			}
			assert.Equal(t, tt.want, fallbackFormat(pf))
		})
	}
}

// tenant serves a refresh-token grant for rt-1 and the endpoints behind
// customer, counting customer fetches.
func tenant(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600, "refresh_token": "rt-1"})
	})
	mux.HandleFunc("/api/v4/user/account", func(w http.ResponseWriter, r *http.Request) {
		reply(w, dracoon.UserAccount{ID: 1, FirstName: "Jane", LastName: "Doe"})
	})
	mux.HandleFunc("/api/v4/public/software/version", func(w http.ResponseWriter, r *http.Request) {
		reply(w, dracoon.SoftwareVersion{RestAPIVersion: "5.0.0"})
	})
	mux.HandleFunc("/api/v4/user/account/customer", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		reply(w, dracoon.CustomerData{ID: 9, Name: "Acme"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestShellURLSwitchesServer(t *testing.T) {
	isolate(t)
	var callsA, callsB atomic.Int32
	srvA := tenant(t, &callsA)
	srvB := tenant(t, &callsB)

	deps, _ := testDeps(t)
	for _, server := range []string{srvA.URL, srvB.URL} {
		entry, err := auth.OpenEntry(deps.Vault, server)
		require.NoError(t, err)
		require.NoError(t, entry.Set("rt-1"))
	}

	cfg := config.Default()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	app := appctx.NewApp(cfg, deps)
	exec := commands.ShellExecutor(app, func() *cobra.Command { return NewRootCmd(deps) })
	ctx := context.Background()

	require.NoError(t, exec(ctx, []string{"customer", "--json", "--url", srvA.URL}))
	require.NoError(t, exec(ctx, []string{"customer", "--json"}))
	assert.Equal(t, int32(1), callsA.Load())
	assert.Zero(t, callsB.Load())

	require.NoError(t, exec(ctx, []string{"customer", "--json", "--url", srvB.URL}))
	assert.Equal(t, int32(1), callsB.Load(), "the new server answers")
	assert.Equal(t, int32(1), callsA.Load())

	// The switch sticks for later lines.
	require.NoError(t, exec(ctx, []string{"customer", "--json"}))
	assert.Equal(t, int32(1), callsB.Load(), "served from the second server's cache")
	assert.Equal(t, int32(1), callsA.Load())
}
