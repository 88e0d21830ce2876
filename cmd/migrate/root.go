package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/members-portal/internal/account"
)

// migrateFunc は差し替え可能なマイグレーション実行関数です。
var migrateFunc = account.Migrate

func newRootCmd(getenv func(string) string) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Run accounts table migrations",
		Long:         `Apply or roll back the PostgreSQL migrations for the accounts table.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")

	for _, direction := range []string{"up", "down"} {
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Run %s migrations", direction),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				url := dsn
				if url == "" {
					url = getenv("DATABASE_URL")
				}
				if url == "" {
					return fmt.Errorf("DATABASE_URL environment variable or --database-url is required")
				}

				cmd.Printf("Running %s migrations...\n", direction)
				if err := migrateFunc(url, direction); err != nil {
					return fmt.Errorf("migrate %s: %w", direction, err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			},
		})
	}

	return cmd
}
