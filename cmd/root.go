/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "personnel",
	Short: "CICAP personnel registry",
	Long: `Personnel registry backed by spreadsheet files.

Records and users live in xlsx workbooks, attachments are stored on a local
directory, MinIO or GCS, and changes can be published to RabbitMQ or Pub/Sub.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
