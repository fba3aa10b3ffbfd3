package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/auth"
	"github.com/unbekanntes-pferd/dcadmin/internal/config"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testServer struct {
	*httptest.Server
	customerCalls atomic.Int32
	eventCalls    atomic.Int32
}

// newTestServer accepts the authorization code AUTHCODE123 and the refresh
// tokens it hands out.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	codes := map[string]string{"AUTHCODE123": "rt-1"}
	refresh := map[string]string{"rt-1": "rt-2", "rt-2": "rt-3"}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		var next string
		var ok bool
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			next, ok = codes[r.Form.Get("code")]
		case "refresh_token":
			next, ok = refresh[r.Form.Get("refresh_token")]
		}
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "at-" + next, "token_type": "bearer", "expires_in": 3600, "refresh_token": next,
		})
	})
	mux.HandleFunc("/api/v4/user/account", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dracoon.UserAccount{ID: 1, FirstName: "Jane", LastName: "Doe", UserName: "jane"})
	})
	mux.HandleFunc("/api/v4/public/software/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dracoon.SoftwareVersion{RestAPIVersion: "5.0.0"})
	})
	mux.HandleFunc("/api/v4/user/account/customer", func(w http.ResponseWriter, r *http.Request) {
		ts.customerCalls.Add(1)
		writeJSON(w, http.StatusOK, dracoon.CustomerData{ID: 9, Name: "Acme", AccountsLimit: 100, AccountsUsed: 42})
	})
	mux.HandleFunc("/api/v4/eventlog/events", func(w http.ResponseWriter, r *http.Request) {
		ts.eventCalls.Add(1)
		writeJSON(w, http.StatusOK, dracoon.LogEventList{
			Range: dracoon.Range{Total: 2},
			Items: []dracoon.LogEvent{
				{ID: 7, Time: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), UserID: 1, Message: "login"},
				{ID: 8, Time: time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC), UserID: 1, Message: "logout"},
			},
		})
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

type testEnv struct {
	app    *appctx.App
	vault  auth.Vault
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.NoKeyring = true
	cfg.CredentialsDir = t.TempDir()

	vault, err := auth.OpenVault(auth.VaultOptions{NoKeyring: true, FallbackDir: cfg.CredentialsDir})
	require.NoError(t, err)

	env := &testEnv{vault: vault, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	env.app = appctx.NewApp(cfg, appctx.Deps{
		Vault:  vault,
		Open:   func(string) error { return nil },
		Stdout: env.stdout,
		Stderr: env.stderr,
	})
	// Machine output keeps prompts away.
	env.app.Flags.JSON = true
	env.app.ApplyFlags()
	return env
}

func (e *testEnv) storeToken(t *testing.T, server, token string) {
	t.Helper()
	entry, err := auth.OpenEntry(e.vault, server)
	require.NoError(t, err)
	require.NoError(t, entry.Set(token))
}

func (e *testEnv) storedToken(t *testing.T, server string) (string, bool) {
	t.Helper()
	entry, err := auth.OpenEntry(e.vault, server)
	require.NoError(t, err)
	if !entry.Exists() {
		return "", false
	}
	token, err := entry.Get()
	require.NoError(t, err)
	return token, true
}

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "dcadmin", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewAuthCmd(),
		NewCustomerCmd(),
		NewEventsCmd(),
		NewPermissionsCmd(),
		NewUsersCmd(),
		NewGroupsCmd(),
		NewVersionCmd(),
	)
	return root
}

func (e *testEnv) run(args ...string) error {
	e.stdout.Reset()
	root := testRoot()
	root.SetArgs(args)
	root.SetOut(e.stdout)
	return root.ExecuteContext(appctx.WithApp(context.Background(), e.app))
}

func (e *testEnv) response(t *testing.T) output.Response {
	t.Helper()
	var resp output.Response
	require.NoError(t, json.Unmarshal(e.stdout.Bytes(), &resp), "stdout: %s", e.stdout.String())
	return resp
}

func TestLoginWithCode(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, "")

	require.NoError(t, env.run("auth", "login", srv.URL, "--code", "AUTHCODE123"))

	resp := env.response(t)
	assert.True(t, resp.OK)
	assert.Contains(t, resp.Summary, "Jane Doe")

	token, ok := env.storedToken(t, srv.URL)
	require.True(t, ok)
	assert.Equal(t, "rt-1", token)
	assert.Equal(t, srv.URL, env.app.Config.BaseURL)

	// The session stays connected for later commands.
	require.NoError(t, env.run("customer"))
	assert.Equal(t, "Acme: 42 of 100 users", env.response(t).Summary)
}

func TestLoginWithoutCodeNonInteractive(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)

	err := env.run("auth", "login")
	require.Error(t, err)

	var e *output.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, output.CodeMissingAuthorizationCode, e.Code)
	assert.Contains(t, e.Hint, srv.URL)
	assert.Contains(t, e.Hint, "--code")
	assert.Contains(t, env.app.AuthorizationURL(), srv.URL)
}

func TestLoginUsesStoredToken(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")

	require.NoError(t, env.run("auth", "login"))

	token, _ := env.storedToken(t, srv.URL)
	assert.Equal(t, "rt-2", token)
	assert.Empty(t, env.app.AuthorizationURL())
}

func TestLoginFallsBackWhenStoredTokenRejected(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "revoked")

	require.NoError(t, env.run("auth", "login", "--code", "AUTHCODE123"))

	token, _ := env.storedToken(t, srv.URL)
	assert.Equal(t, "rt-1", token)
}

func TestLoginRejectsInsecureURL(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.run("auth", "login", "http://dracoon.example.com", "--code", "x")
	assert.True(t, output.IsCode(err, output.CodeConfig), "got %v", err)
}

func TestLogoutDeletesToken(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")

	require.NoError(t, env.run("auth", "logout", "-f"))

	_, ok := env.storedToken(t, srv.URL)
	assert.False(t, ok)
	assert.Equal(t, "Successfully logged out", env.response(t).Summary)
}

func TestStatusReportsStoredToken(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)

	require.NoError(t, env.run("auth", "status"))
	assert.Equal(t, "Not logged in", env.response(t).Summary)

	env.storeToken(t, srv.URL, "rt-1")
	require.NoError(t, env.run("auth", "status"))
	assert.Contains(t, env.response(t).Summary, "Refresh token stored")
}

func TestCommandsNeedServer(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.run("customer")
	assert.True(t, output.IsCode(err, output.CodeUsage), "got %v", err)
}

func TestCustomerIsCached(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")

	require.NoError(t, env.run("customer"))
	require.NoError(t, env.run("customer"))

	assert.Equal(t, int32(1), srv.customerCalls.Load())
}

func TestEventsList(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")

	require.NoError(t, env.run("events", "list", "--status", "success", "--from", "2024-03-01"))
	assert.Equal(t, "2 of 2 events", env.response(t).Summary)

	require.NoError(t, env.run("events", "list", "--status", "success", "--from", "2024-03-01"))
	assert.Equal(t, int32(1), srv.eventCalls.Load())
}

func TestEventsRejectsBadFilters(t *testing.T) {
	env := newTestEnv(t, "https://dracoon.example.com")

	err := env.run("events", "list", "--status", "maybe")
	assert.True(t, output.IsCode(err, output.CodeUsage), "got %v", err)

	err = env.run("events", "export", "-o", "-", "--to", "someday")
	assert.True(t, output.IsCode(err, output.CodeUsage), "got %v", err)
}

func TestEventsExportWritesFile(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")
	path := filepath.Join(t.TempDir(), "events.csv")

	require.NoError(t, env.run("events", "export", "-o", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,time,userId,message"))
	assert.Contains(t, lines[1], "login")

	assert.Equal(t, "Exported 2 events to "+path, env.response(t).Summary)

	// No temp files left next to the export.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExportToStdout(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")

	require.NoError(t, env.run("events", "export", "-o", "-"))
	assert.True(t, strings.HasPrefix(env.stdout.String(), "id,time,userId"))
}

func TestExportRequiresOutput(t *testing.T) {
	env := newTestEnv(t, "https://dracoon.example.com")

	for _, args := range [][]string{
		{"events", "export"},
		{"users", "export"},
		{"groups", "export"},
		{"permissions", "export"},
	} {
		err := env.run(args...)
		assert.True(t, output.IsCode(err, output.CodeUsage), "%v: got %v", args, err)
	}
}

func TestFailedExportLeavesNoFile(t *testing.T) {
	env := newTestEnv(t, "")
	path := filepath.Join(t.TempDir(), "users.csv")

	require.Error(t, env.run("users", "export", "-o", path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPermissionsExportAllRejectsFilter(t *testing.T) {
	env := newTestEnv(t, "https://dracoon.example.com")

	err := env.run("permissions", "export", "--all", "--filter", "userId:eq:1", "-o", "-")
	assert.True(t, output.IsCode(err, output.CodeUsage), "got %v", err)
}

func TestListRejectsBadFilter(t *testing.T) {
	env := newTestEnv(t, "https://dracoon.example.com")

	err := env.run("users", "export", "--filter", "lastName", "-o", "-")
	assert.True(t, output.IsCode(err, output.CodeUsage), "got %v", err)
}

func TestParseEventStatus(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"success", 0, true},
		{"SUCCESS", 0, true},
		{"0", 0, true},
		{"failure", 2, true},
		{" 2 ", 2, true},
		{"1", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEventStatus(tt.in)
			if !tt.ok {
				assert.True(t, output.IsCode(err, output.CodeUsage))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformCobraError(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flag needs an argument: --output", "--output requires a value"},
		{"unknown flag: --bogus", "Unknown option: --bogus"},
		{"unknown shorthand flag: 'x' in -x", "Unknown option: -x"},
		{`invalid argument "abc" for "--limit" flag`, `invalid argument "abc" for "--limit" flag`},
		{"accepts 1 arg(s), received 0", "accepts 1 arg(s), received 0"},
		{`required flag(s) "output" not set`, "--output required"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := TransformCobraError(errors.New(tt.in))
			assert.True(t, output.IsCode(err, output.CodeUsage))
			assert.Equal(t, tt.want, err.Error())
		})
	}

	other := errors.New("boom")
	assert.Same(t, other, TransformCobraError(other))
	assert.NoError(t, TransformCobraError(nil))
}

func TestShellExecutorSharesApp(t *testing.T) {
	srv := newTestServer(t)
	env := newTestEnv(t, srv.URL)
	env.storeToken(t, srv.URL, "rt-1")
	exec := ShellExecutor(env.app, testRoot)
	ctx := context.Background()

	require.NoError(t, exec(ctx, []string{"customer"}))
	require.NoError(t, exec(ctx, []string{"customer"}))
	assert.Equal(t, int32(1), srv.customerCalls.Load())

	env.stdout.Reset()
	err := exec(ctx, []string{"shell"})
	assert.True(t, output.IsCode(err, output.CodeUsage))
	assert.Contains(t, env.stdout.String(), "Already in a shell")

	env.stdout.Reset()
	err = exec(ctx, []string{"customer", "--bogus"})
	assert.True(t, output.IsCode(err, output.CodeUsage))
	assert.Contains(t, env.stdout.String(), "Unknown option: --bogus")
}

func TestShellPrompt(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, "dcadmin> ", shellPrompt(env.app))

	env.app.Config.BaseURL = "https://dracoon.example.com/"
	assert.Equal(t, "dcadmin dracoon.example.com> ", shellPrompt(env.app))
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t, "")

	require.NoError(t, env.run("version"))
	assert.Contains(t, env.stdout.String(), "dcadmin version")
}
