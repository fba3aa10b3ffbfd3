// Package cli wires the dcadmin command tree.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/commands"
	"github.com/unbekanntes-pferd/dcadmin/internal/config"
	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/version"
)

// NewRootCmd creates the root command with all subcommands. deps is passed to
// the App created for the command; the shell reuses the App from the context.
func NewRootCmd(deps appctx.Deps) *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "dcadmin",
		Short: "Administer DRACOON tenants from the command line",
		Long: `dcadmin queries a DRACOON tenant: customer usage, the audit event log,
room permissions, users and groups. Lists can be exported as CSV.

Log in once with dcadmin auth login; the refresh token is kept in the system
keyring. dcadmin shell keeps one session and its caches across commands.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			// Inside the shell every line gets the long-lived app.
			if app := appctx.FromContext(cmd.Context()); app != nil {
				if flags.BaseURL != "" {
					app.Config.BaseURL = hostutil.Normalize(flags.BaseURL)
				}
				app.Flags = flags
				app.ApplyFlags()
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL:   hostutil.Normalize(flags.BaseURL),
				NoKeyring: flags.NoKeyring,
			})
			if err != nil {
				return err
			}

			app := appctx.NewApp(cfg, deps)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	registerGlobalFlags(cmd.PersistentFlags(), &flags)

	cmd.AddCommand(
		commands.NewAuthCmd(),
		commands.NewCustomerCmd(),
		commands.NewEventsCmd(),
		commands.NewPermissionsCmd(),
		commands.NewUsersCmd(),
		commands.NewGroupsCmd(),
		commands.NewShellCmd(func() *cobra.Command { return NewRootCmd(deps) }),
		commands.NewVersionCmd(),
	)

	return cmd
}

func registerGlobalFlags(pf *pflag.FlagSet, flags *appctx.GlobalFlags) {
	// Output format flags
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	pf.BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	pf.BoolVar(&flags.Styled, "styled", false, "Force table output")
	pf.BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	pf.BoolVar(&flags.Count, "count", false, "Output only count")

	// Context flags
	pf.StringVar(&flags.BaseURL, "url", "", "DRACOON server (e.g. dracoon.example.com)")

	// Behavior flags
	pf.CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for requests, -vv adds cache lookups)")
	pf.BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	pf.BoolVar(&flags.NoKeyring, "no-keyring", false, "Store credentials in a file instead of the system keyring")
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], appctx.Deps{}))
}

// Run executes one command line and returns the process exit code.
func Run(ctx context.Context, args []string, deps appctx.Deps) int {
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	if deps.Stdout != nil {
		cmd.SetOut(deps.Stdout)
	}

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	err = commands.TransformCobraError(err)
	apiErr := output.AsError(err)

	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Setup failed before an app existed.
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd.PersistentFlags()),
		Writer: deps.Stdout,
	})
	_ = writer.Err(err)
	return apiErr.ExitCode()
}

// fallbackFormat reads the format flags directly from the parsed flag set.
func fallbackFormat(pf *pflag.FlagSet) output.Format {
	quiet, _ := pf.GetBool("quiet")
	idsOnly, _ := pf.GetBool("ids-only")
	count, _ := pf.GetBool("count")
	styled, _ := pf.GetBool("styled")
	yamlFlag, _ := pf.GetBool("yaml")
	jsonFlag, _ := pf.GetBool("json")

	switch {
	case idsOnly:
		return output.FormatIDs
	case count:
		return output.FormatCount
	case quiet:
		return output.FormatQuiet
	case jsonFlag:
		return output.FormatJSON
	case yamlFlag:
		return output.FormatYAML
	case styled:
		return output.FormatStyled
	default:
		return output.FormatAuto
	}
}
