/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/cicap/personnel/config"
	"github.com/cicap/personnel/internal/logging"
	"github.com/cicap/personnel/internal/storage"
	"github.com/cicap/personnel/internal/store"
	"github.com/spf13/cobra"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data workbooks and the documents location",
	Long: `Creates the users workbook with the seed account, an empty records
workbook and the documents location. Existing files are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(cfg.Log)
		ctx := cmd.Context()

		users := store.NewUserRepository(cfg.Data.UsersFile)
		if _, err := users.Load(ctx); err != nil {
			return fmt.Errorf("init users workbook failed: %w", err)
		}

		records := store.NewRecordRepository(cfg.Data.RecordsFile)
		created, err := records.Init(ctx)
		if err != nil {
			return fmt.Errorf("init records workbook failed: %w", err)
		}

		documents, err := storage.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init document storage failed: %w", err)
		}
		if err := documents.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("init document storage failed: %w", err)
		}

		log.Info("data initialized",
			"users", users.Path(),
			"records", records.Path(),
			"records_created", created,
			"documents", documents.Bucket(),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
