package main

import (
	"fmt"
	"os"

	"furnish-backend/internal/env"

	"github.com/spf13/cobra"
)

func main() {
	if err := env.Load(".env.local", ".env"); err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
		os.Exit(1)
	}
	rootCmd := &cobra.Command{
		Use:           "furnishctl",
		Short:         "operate the furniture shop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		migrateCommand(),
		addAdminCommand(),
		cartCommand(),
		checkoutCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
