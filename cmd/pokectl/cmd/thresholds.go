package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func thresholdsCmd() *cobra.Command {
	thresholdsRoot := &cobra.Command{
		Use:   "thresholds",
		Short: "Manage price thresholds",
		Long: "Manage the keyword price caps that screen in-stock items before\n" +
			"they can trigger alerts. An item whose title matches a keyword\n" +
			"must be at or under its cap to pass.",
	}

	thresholdsRoot.AddCommand(
		thresholdListCmd(),
		thresholdSetCmd(),
		thresholdDeleteCmd(),
	)

	return thresholdsRoot
}

func thresholdListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List price thresholds",
		Example: `  pokectl thresholds list
  pokectl thresholds list --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			thresholds, err := c.ListThresholds(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(thresholds)
			}
			if len(thresholds) == 0 {
				fmt.Println("No thresholds configured.")
				return nil
			}
			return printThresholdTable(thresholds)
		},
	}
}

func thresholdSetCmd() *cobra.Command {
	var maxPrice float64

	cmd := &cobra.Command{
		Use:     "set <keyword>",
		Short:   "Create or update a threshold",
		Example: `  pokectl thresholds set "elite trainer box" --max-price 60`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if maxPrice <= 0 {
				return fmt.Errorf("--max-price must be positive")
			}
			c := newClient()
			th := domain.PriceThreshold{Keyword: args[0], MaxPrice: maxPrice}
			if err := c.PutThreshold(context.Background(), th); err != nil {
				return err
			}
			fmt.Printf("Threshold set: %q at most €%.2f\n", th.Keyword, th.MaxPrice)
			return nil
		},
	}
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price in euros")

	return cmd
}

func thresholdDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <keyword>",
		Short:   "Delete a threshold",
		Example: `  pokectl thresholds delete "elite trainer box"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			if err := c.DeleteThreshold(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Threshold %q deleted.\n", args[0])
			return nil
		},
	}
}

func intervalsCmd() *cobra.Command {
	var interval time.Duration

	intervalsRoot := &cobra.Command{
		Use:   "intervals",
		Short: "Manage per-domain poll intervals",
	}

	setCmd := &cobra.Command{
		Use:     "set <domain>",
		Short:   "Set the poll interval override for a domain",
		Example: `  pokectl intervals set bol.com --every 2m`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--every must be positive")
			}
			c := newClient()
			seconds := int64(interval / time.Second)
			if err := c.SetDomainInterval(context.Background(), args[0], seconds); err != nil {
				return err
			}
			fmt.Printf("Interval for %s set to %s.\n", args[0], interval)
			return nil
		},
	}
	setCmd.Flags().DurationVar(&interval, "every", 0, "poll interval, e.g. 90s or 2m")

	intervalsRoot.AddCommand(setCmd)
	return intervalsRoot
}
