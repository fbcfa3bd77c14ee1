package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "homeworq",
		Short: "Run and inspect a scheduled-task engine",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file (default jobs + engine settings)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(jobsCmd())
	cmd.AddCommand(tasksCmd())
	return cmd
}
