package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/database"
	"github.com/redmonkez12/task-api/internal/verification"
)

// openDB is a seam for tests.
var openDB = func(ctx context.Context) (*sql.DB, error) {
	dbCfg := config.LoadDatabase()
	return database.Open(ctx, dbCfg.ConnectionString())
}

// sweeper deletes expired rows and reports how many went.
type sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *sql.DB) error {
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *sql.DB) error {
				return database.MigrationStatus(cmd.Context(), db)
			})
		},
	}

	migrateCmd.AddCommand(upCmd, statusCmd)
	return migrateCmd
}

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired rows",
	}

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Delete revoked tokens past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepWith(cmd, "revoked tokens", func(db bun.IDB) sweeper {
				return auth.NewRevocationRepository(db)
			})
		},
	}

	verificationsCmd := &cobra.Command{
		Use:   "verifications",
		Short: "Delete expired email and password links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepWith(cmd, "verifications", func(db bun.IDB) sweeper {
				return verification.NewRepository(db)
			})
		},
	}

	sweepCmd.AddCommand(tokensCmd, verificationsCmd)
	return sweepCmd
}

func sweepWith(cmd *cobra.Command, what string, newSweeper func(bun.IDB) sweeper) error {
	return withDB(cmd.Context(), func(db *sql.DB) error {
		n, err := newSweeper(database.NewBunDB(db)).DeleteExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d %s\n", n, what)
		return nil
	})
}

func withDB(ctx context.Context, fn func(*sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db)
}
