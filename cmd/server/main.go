// Package main implements the entry point for the taskboard API server.
// The binary serves the HTTP API and manages the database schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Task management API server",
	Long: `Taskboard serves a JSON API for managing tasks, categories and their images.

Configuration is read from TASKBOARD_* environment variables, an optional
config.yaml and an optional .env file in the working directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
