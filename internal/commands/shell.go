package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/config"
	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/repl"
)

// NewShellCmd creates the interactive shell. newRoot builds a fresh command
// tree for every line; all lines share this process's session and caches.
func NewShellCmd(newRoot func() *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively in one session",
		Long: `Start an interactive shell.

Commands are entered without the dcadmin prefix. The login and the cached
customer info, operation types, events and permissions are kept until the
shell exits, so repeated queries don't go back to the server.

Type exit or quit (or press Ctrl-D) to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			historyDir := config.GlobalConfigDir()
			if err := os.MkdirAll(historyDir, 0700); err != nil {
				app.Logger.Debug("no shell history", "error", err)
			}

			r := repl.New(ShellExecutor(app, newRoot), repl.Options{
				Prompt:      func() string { return shellPrompt(app) },
				HistoryFile: filepath.Join(historyDir, "history"),
				Completer:   repl.CompleterFor(newRoot(), "shell"),
				Logger:      app.Logger,
			})
			return r.Run(cmd.Context())
		},
	}
}

// ShellExecutor runs one shell line against app and renders its error.
func ShellExecutor(app *appctx.App, newRoot func() *cobra.Command) repl.Executor {
	return func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			err := output.ErrUsage("Already in a shell")
			_ = app.Err(err)
			return err
		}

		root := newRoot()
		root.SetArgs(args)
		err := root.ExecuteContext(appctx.WithApp(ctx, app))
		if err != nil {
			err = TransformCobraError(err)
			_ = app.Err(err)
		}
		return err
	}
}

func shellPrompt(app *appctx.App) string {
	if app.Config.BaseURL == "" {
		return "dcadmin> "
	}
	return "dcadmin " + hostutil.AccountName(app.Config.BaseURL) + "> "
}
