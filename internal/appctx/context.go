// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/unbekanntes-pferd/dcadmin/internal/auth"
	"github.com/unbekanntes-pferd/dcadmin/internal/config"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/export"
	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/observability"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
	"github.com/unbekanntes-pferd/dcadmin/internal/version"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config    *config.Config
	Session   *auth.Session
	Resources *resources.Service
	Exporter  *export.Exporter
	Output    *output.Writer
	Logger    *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Flags holds the global flag values
	Flags GlobalFlags

	// NoBrowser suppresses opening the authorization page.
	NoBrowser bool

	authMu  sync.Mutex
	authURL string
	open    auth.Opener

	format output.Format
	stdout io.Writer
	stderr io.Writer
	level  *slog.LevelVar
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	YAML    bool
	Quiet   bool
	Styled  bool
	IDsOnly bool
	Count   bool

	// Context flags
	BaseURL string

	// Behavior flags
	Verbose   int // 0=off, 1=requests, 2=requests+cache lookups (stacks with -v -v or -vv)
	Stats     bool
	NoKeyring bool
}

// Deps replaces the collaborators NewApp would otherwise build. Used by tests.
type Deps struct {
	Vault  auth.Vault
	Build  auth.Builder
	Open   auth.Opener
	Stdout io.Writer
	Stderr io.Writer
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, deps Deps) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(deps.Stderr, &slog.HandlerOptions{Level: level}))

	// Collector always runs to gather stats; hooks control output verbosity.
	// Level 0 initially; ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(0, collector, observability.NewTraceWriterTo(deps.Stderr))

	if deps.Open == nil {
		deps.Open = auth.OpenBrowser
	}
	if deps.Build == nil {
		deps.Build = auth.DracoonBuilder(dracoon.WithHooks(hooks), dracoon.WithLogger(logger))
	}

	vault := deps.Vault
	if vault == nil {
		v, err := auth.OpenVault(auth.VaultOptions{
			NoKeyring:   cfg.NoKeyring,
			FallbackDir: cfg.CredentialsDir,
			Warn:        deps.Stderr,
		})
		if err != nil {
			// Every credential operation reports credential_storage_failed.
			logger.Debug("no credential vault available", "error", err)
		} else {
			vault = v
		}
	}

	app := &App{}
	session := auth.NewSession(auth.Options{
		Vault: vault,
		App: auth.AppCredentials{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			UserAgent:    version.UserAgent(),
		},
		Build:  deps.Build,
		Open:   app.openAuthorizationPage,
		Logger: logger,
	})

	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		logger.Warn("unknown output format in config, using auto", "format", cfg.Format)
		format = output.FormatAuto
	}

	app.Config = cfg
	app.Session = session
	app.Logger = logger
	app.Collector = collector
	app.Hooks = hooks
	app.Output = output.New(output.Options{Format: format, Writer: deps.Stdout})
	app.open = deps.Open
	app.format = format
	app.stdout = deps.Stdout
	app.stderr = deps.Stderr
	app.level = level

	caches := resources.NewCaches(cacheTTLs(cfg.CacheTTL), resources.CacheOptions{
		Logger: logger,
		Stats:  hooks,
	})
	app.Resources = resources.NewService(app.Client, caches)
	app.Exporter = export.New(app.Client, export.Options{
		PageSize:    cfg.ExportPageSize,
		Concurrency: cfg.ExportConcurrency,
		Logger:      logger,
	})
	return app
}

// cacheTTLs overlays configured lifetimes on the built-in ones.
func cacheTTLs(c config.CacheTTL) resources.TTLs {
	ttls := resources.DefaultTTLs()
	if c.Customer > 0 {
		ttls.Customer = c.Customer
	}
	if c.Operations > 0 {
		ttls.Operations = c.Operations
	}
	if c.Events > 0 {
		ttls.Events = c.Events
	}
	if c.Permissions > 0 {
		ttls.Permissions = c.Permissions
	}
	return ttls
}

// Client returns the connected client for the configured server. It resumes
// from the stored refresh token when this process has not connected yet or
// is connected to a different server.
func (a *App) Client(ctx context.Context) (dracoon.API, error) {
	server, err := a.Server()
	if err != nil {
		return nil, err
	}
	if conn, err := a.Session.Connection(); err == nil {
		if hostutil.Normalize(conn.BaseURL()) == hostutil.Normalize(server) {
			return conn, nil
		}
		a.Logger.Debug("server changed, switching session", "from", conn.BaseURL(), "to", server)
	}
	if _, err := a.Session.Restore(ctx, server); err != nil {
		return nil, err
	}
	conn, err := a.Session.Connection()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// openAuthorizationPage remembers url for prompts and opens it unless
// NoBrowser is set.
func (a *App) openAuthorizationPage(url string) error {
	a.authMu.Lock()
	a.authURL = url
	a.authMu.Unlock()
	if a.NoBrowser {
		return nil
	}
	return a.open(url)
}

// AuthorizationURL returns the last authorization page handed to the browser.
func (a *App) AuthorizationURL() string {
	a.authMu.Lock()
	defer a.authMu.Unlock()
	return a.authURL
}

// Server returns the configured server URL or a usage error.
func (a *App) Server() (string, error) {
	if a.Config.BaseURL == "" {
		return "", output.ErrUsageHint("No server configured",
			"Pass --url, set DCADMIN_BASE_URL, or add base_url to the config file")
	}
	return a.Config.BaseURL, nil
}

// ApplyFlags applies global flag values to the app configuration. It can be
// called again with new flags, as the shell does for every line.
func (a *App) ApplyFlags() {
	// Order matters: specific modes first
	format := a.format
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(output.Options{Format: format, Writer: a.stdout})

	// Determine verbosity level from flags and DCADMIN_DEBUG env var
	verboseLevel := a.Flags.Verbose
	if debugEnv := os.Getenv("DCADMIN_DEBUG"); debugEnv != "" {
		if level, err := strconv.Atoi(debugEnv); err == nil {
			verboseLevel = max(verboseLevel, level)
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}

	if a.Hooks != nil {
		a.Hooks.SetLevel(verboseLevel)
	}
	if verboseLevel > 0 {
		a.level.Set(slog.LevelDebug)
	} else {
		a.level.Set(slog.LevelWarn)
	}
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Stats stay out of machine-consumable modes
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStatsToStderr(&stats)
	}
	return nil
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStatsToStderr outputs a compact stats line to stderr.
func (a *App) printStatsToStderr(stats *observability.SessionMetrics) {
	if stats == nil {
		return
	}

	var parts []string

	duration := stats.EndTime.Sub(stats.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	if stats.TotalRequests == 1 {
		parts = append(parts, "1 request")
	} else if stats.TotalRequests > 1 {
		parts = append(parts, fmt.Sprintf("%d requests", stats.TotalRequests))
	}

	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		rate := float64(stats.CacheHits) / float64(lookups) * 100
		parts = append(parts, fmt.Sprintf("%d cached (%.0f%%)", stats.CacheHits, rate))
	}

	if stats.FailedRequests > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", stats.FailedRequests))
	}

	fmt.Fprintf(a.stderr, "\nStats: %s\n", strings.Join(parts, " | "))
}

// IsInteractive returns true if prompts can be shown.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.YAML || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return false
	}
	return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stderr.Fd())
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
