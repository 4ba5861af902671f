package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/milkrun-inc/milkrun/internal/interfaces/cli/migrate"
	"github.com/milkrun-inc/milkrun/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "milkrun",
		Short: "Milkrun - recurring grocery delivery engine",
		Long:  `Milkrun schedules and tracks recurring grocery deliveries: subscription calendars, per-day delivery lifecycle, reschedules, and cutoff enforcement.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
