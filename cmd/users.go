/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/cicap/personnel/config"
	"github.com/cicap/personnel/internal/logging"
	"github.com/cicap/personnel/internal/services"
	"github.com/cicap/personnel/internal/store"
	"github.com/spf13/cobra"
)

var (
	addUsername string
	addPassword string
)

// usersCmd represents the users command.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage login accounts",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a login account",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newUserService()
		if err := svc.Register(cmd.Context(), addUsername, addPassword, addPassword); err != nil {
			return fmt.Errorf("add user failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s created\n", addUsername)
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List login accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newUserService().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list users failed: %w", err)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd, usersListCmd)

	usersAddCmd.Flags().StringVarP(&addUsername, "username", "u", "", "account username")
	usersAddCmd.Flags().StringVarP(&addPassword, "password", "p", "", "account password")
	_ = usersAddCmd.MarkFlagRequired("username")
	_ = usersAddCmd.MarkFlagRequired("password")
}

func newUserService() *services.UserService {
	cfg := config.LoadConfig()
	return services.NewUserService(store.NewUserRepository(cfg.Data.UsersFile), logging.New(cfg.Log))
}
