package main

import (
	"errors"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/config"
	"github.com/Harshitk-cp/dialogreply/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres graph schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			dbURL := config.DatabaseURL()
			if dbURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			pool, err := pgxpool.New(cmd.Context(), dbURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			if err := store.NewPostgresGraphStore(pool).Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate graph schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "graph schema is up to date")
			return nil
		},
	}
}
