package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/auth"
	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/tui"
)

// CodePrompt asks the operator for the authorization code shown at authURL.
type CodePrompt func(authURL string) (string, error)

// PromptCode is the interactive prompt used by auth login. Tests replace it.
var PromptCode CodePrompt = tui.AuthorizationCode

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Log in to a DRACOON server, inspect the stored credentials and log out.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthValidateCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var code string
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login [url]",
		Short: "Authenticate with a DRACOON server",
		Long: `Connect to a DRACOON server.

A refresh token stored for the server is used without prompting. Otherwise the
authorization page is opened in the browser and the one-time code it shows is
requested (or taken from --code).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			server, err := serverArg(app, args)
			if err != nil {
				return err
			}
			if err := hostutil.RequireSecureURL(server); err != nil {
				return output.ErrConfig(err.Error(), err)
			}

			// A code from an earlier authorization page needs no new browser window.
			app.NoBrowser = noBrowser || code != ""
			defer func() { app.NoBrowser = false }()

			account, err := login(cmd.Context(), app, server, code)
			if err != nil {
				return err
			}
			app.Config.BaseURL = server

			return app.OK(account, output.WithSummary(
				fmt.Sprintf("Logged in to %s as %s %s", account.Server, account.FirstName, account.LastName)))
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the login page")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open the browser automatically")

	return cmd
}

// login runs Initiate and Connect. A stored refresh token the server rejects
// has already been deleted by Connect, so one more Initiate falls back to the
// authorization-code flow.
func login(ctx context.Context, app *appctx.App, server, code string) (*auth.Account, error) {
	for attempt := 0; ; attempt++ {
		usesStored, err := app.Session.Initiate(ctx, server)
		if err != nil {
			return nil, err
		}

		if !usesStored && code == "" {
			if code, err = askForCode(app); err != nil {
				return nil, err
			}
		}

		account, err := app.Session.Connect(ctx, code)
		if err == nil {
			return account, nil
		}
		if !usesStored || attempt > 0 || !output.IsCode(err, output.CodeAuthRejected) {
			return nil, err
		}
		app.Logger.Warn("stored session expired, starting a new login", "server", server)
	}
}

func askForCode(app *appctx.App) (string, error) {
	authURL := app.AuthorizationURL()
	if !app.IsInteractive() {
		return "", &output.Error{
			Code:    output.CodeMissingAuthorizationCode,
			Message: "Authorization code required",
			Hint:    fmt.Sprintf("Open %s, then run: dcadmin auth login --code <code>", authURL),
		}
	}
	code, err := PromptCode(authURL)
	if err != nil {
		return "", output.ErrUsage("login canceled")
	}
	return code, nil
}

func newAuthLogoutCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "logout [url]",
		Short: "Remove stored credentials",
		Long:  "Delete the refresh token stored for the server and reset the session.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			server, err := serverArg(app, args)
			if err != nil {
				return err
			}

			if !force && app.IsInteractive() {
				ok, err := tui.Confirm(fmt.Sprintf("Log out of %s?", hostutil.AccountName(server)), true)
				if err != nil || !ok {
					return output.ErrUsage("logout canceled")
				}
			}

			if err := app.Session.Logout(server); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "logged_out",
				"server": hostutil.Normalize(server),
			}, output.WithSummary("Successfully logged out"))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Don't ask for confirmation")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [url]",
		Short: "Show authentication status",
		Long:  "Show whether a refresh token is stored for the server and the state of this session.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			server, err := serverArg(app, args)
			if err != nil {
				return err
			}

			status, err := app.Session.Status(server)
			if err != nil {
				return err
			}

			summary := "Not logged in"
			if status.StoredToken {
				summary = "Refresh token stored for " + status.Account
			}
			return app.OK(status, output.WithSummary(summary))
		},
	}
}

func newAuthValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check that a URL is a reachable DRACOON server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			server := hostutil.Normalize(args[0])

			valid, err := app.Session.ValidateServer(cmd.Context(), server)
			if err != nil {
				return err
			}

			summary := server + " is a DRACOON server"
			if !valid {
				summary = server + " did not answer as a DRACOON server"
			}
			return app.OK(map[string]any{"url": server, "valid": valid}, output.WithSummary(summary))
		},
	}
}

// serverArg picks the positional URL over the configured one.
func serverArg(app *appctx.App, args []string) (string, error) {
	if len(args) > 0 {
		return hostutil.Normalize(args[0]), nil
	}
	return app.Server()
}
