package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// NewCustomerCmd creates the customer command.
func NewCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customer",
		Short: "Show tenant usage and limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			info, err := app.Resources.CustomerInfo(cmd.Context())
			if err != nil {
				return err
			}

			return app.OK(info, output.WithSummary(
				fmt.Sprintf("%s: %d of %d users", info.Name, info.UserCount, info.UserLimit)))
		},
	}
}
