package main

import (
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/zepto/pkg/app"
)

// zepto migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("Running migrations…")
		return app.Migrate(cmd.OutOrStdout())
	},
}

// zepto migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("Rolling back last batch…")
		return app.Rollback(cmd.OutOrStdout())
	},
}

// zepto migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.MigrationStatus(cmd.OutOrStdout())
	},
}

// zepto seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalog and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Seed(cmd.Context(), cmd.OutOrStdout())
	},
}
