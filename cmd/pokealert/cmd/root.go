// Package cmd implements the CLI commands for the pokealert server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pokealert",
	Short: "Monitor web shops for stock and price changes",
	Long: "A service that polls product and wishlist pages, detects stock and\n" +
		"price changes, and delivers alerts to Discord channels with retry\n" +
		"and batching.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
