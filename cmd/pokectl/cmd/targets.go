package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func targetsCmd() *cobra.Command {
	targetsRoot := &cobra.Command{
		Use:   "targets",
		Short: "Manage tracked targets",
		Long: "Manage the product and wishlist pages being polled for stock\n" +
			"and price changes.",
	}

	targetsRoot.AddCommand(
		targetListCmd(),
		targetGetCmd(),
		targetAddCmd(),
		targetActivateCmd(),
		targetDeactivateCmd(),
		targetDeleteCmd(),
	)

	return targetsRoot
}

func targetListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked targets",
		Example: `  pokectl targets list
  pokectl targets list --active --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			targets, err := c.ListTargets(context.Background(), activeOnly)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(targets)
			}
			if len(targets) == 0 {
				fmt.Println("No targets found.")
				return nil
			}
			return printTargetTable(targets)
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active targets")

	return cmd
}

func targetGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Short:   "Show target details",
		Example: `  pokectl targets get 7c9e6679`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			t, err := c.GetTarget(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(t)
			}
			return printTargetDetail(t)
		},
	}
}

func targetAddCmd() *cobra.Command {
	var (
		targetURL      string
		targetChannel  int64
		targetGuild    int64
		targetInterval time.Duration
		targetMentions []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a target and start polling it",
		Long: "Register a product or wishlist page. Wishlist URLs are detected\n" +
			"automatically and expanded into per-item checks on every pass.",
		Example: `  # Track a single product page
  pokectl targets add --url "https://www.bol.com/nl/p/etb/9300000123456789" --channel 123456789

  # Track a wishlist with a custom interval and a role mention
  pokectl targets add --url "https://www.bol.com/nl/rnwy/verlanglijstje/abc" \
    --channel 123456789 --interval 2m --mention "<@&555>"`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if targetURL == "" || targetChannel == 0 {
				return fmt.Errorf("--url and --channel are required")
			}
			t := &domain.TrackedTarget{
				URL:       targetURL,
				ChannelID: targetChannel,
				GuildID:   targetGuild,
				Interval:  targetInterval,
				Mentions:  targetMentions,
			}
			c := newClient()
			created, err := c.CreateTarget(context.Background(), t)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(created)
			}
			fmt.Printf("Target created: %s (%s)\n", created.URL, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetURL, "url", "", "page URL to track")
	cmd.Flags().Int64Var(&targetChannel, "channel", 0, "Discord channel ID for alerts")
	cmd.Flags().Int64Var(&targetGuild, "guild", 0, "Discord guild ID")
	cmd.Flags().DurationVar(&targetInterval, "interval", 0, "poll interval (default from server config)")
	cmd.Flags().StringArrayVar(&targetMentions, "mention", nil, "mention strings to prepend to alerts")

	return cmd
}

func targetActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "activate <id>",
		Short:   "Resume polling a target",
		Example: `  pokectl targets activate 7c9e6679`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTargetSetActive(args[0], true)
		},
	}
}

func targetDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "deactivate <id>",
		Short:   "Pause polling a target",
		Example: `  pokectl targets deactivate 7c9e6679`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTargetSetActive(args[0], false)
		},
	}
}

func targetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a target",
		Example: `  pokectl targets delete 7c9e6679`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			if err := c.DeleteTarget(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Target %s deleted.\n", args[0])
			return nil
		},
	}
}

func runTargetSetActive(id string, active bool) error {
	c := newClient()
	if err := c.SetTargetActive(context.Background(), id, active); err != nil {
		return err
	}

	action := "activated"
	if !active {
		action = "deactivated"
	}
	fmt.Printf("Target %s %s.\n", id, action)
	return nil
}
