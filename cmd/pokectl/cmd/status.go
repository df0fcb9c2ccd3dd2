package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	statusRoot := &cobra.Command{
		Use:   "status",
		Short: "Show monitoring health",
		Example: `  pokectl status
  pokectl status --output json
  pokectl status 7c9e6679`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()

			if len(args) == 1 {
				s, err := c.GetStatus(context.Background(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(s)
				}
				return printStatusDetail(s)
			}

			statuses, err := c.ListStatus(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(statuses)
			}
			if len(statuses) == 0 {
				fmt.Println("No targets monitored.")
				return nil
			}
			return printStatusTable(statuses)
		},
	}

	return statusRoot
}
