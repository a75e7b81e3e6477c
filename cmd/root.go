package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ristosync",
	Short: "Order state synchronization engine",
	Long:  `RistoSync keeps a restaurant's orders, menu and settings consistent across devices: local-first storage, periodic cloud reconciliation and a realtime change feed.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
