package main

import (
	"fmt"
	"log/slog"
	"os"

	"furnish-backend/internal/config"
	"furnish-backend/internal/infrastructure/repo"
	"furnish-backend/internal/logging"
	"furnish-backend/internal/usecase"

	"github.com/spf13/cobra"
)

type dbFlags struct {
	driver string
	dsn    string
}

func (f *dbFlags) register(cmd *cobra.Command) {
	d := config.EnvDefaults()
	cmd.Flags().StringVar(&f.driver, "db-driver", d.DBDriver, "postgres or sqlite")
	cmd.Flags().StringVar(&f.dsn, "db-dsn", d.DBDSN, "database connection string")
}

func (f *dbFlags) open(cmd *cobra.Command, log *slog.Logger) (*repo.Store, error) {
	store, err := repo.Open(repo.Options{Driver: f.driver, DSN: f.dsn, Logger: log})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func cliLogger() *slog.Logger {
	return logging.New(os.Stderr, false, "warn")
}

func migrateCommand() *cobra.Command {
	var db dbFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.open(cmd, cliLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
	db.register(cmd)
	return cmd
}

func addAdminCommand() *cobra.Command {
	var (
		db                    dbFlags
		email, password, name string
	)
	cmd := &cobra.Command{
		Use:   "add-admin",
		Short: "create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.open(cmd, cliLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			auth := &usecase.AuthService{Store: store}
			u, err := auth.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created with id %d\n", u.Email, u.ID)
			return nil
		},
	}
	db.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password, at least 8 characters")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
