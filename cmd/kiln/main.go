package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/cli"
	"github.com/example/kiln/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "kiln",
		Short:   "kiln - production scheduling for a ceramics studio",
		Version: version.String(),
		Long: `kiln turns open orders into a day-by-day work schedule. It splits each piece
into its stages, packs the hours into studio capacity and tracks progress as
tasks are completed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	rootCmd.AddCommand(cli.ScheduleCmd())
	rootCmd.AddCommand(cli.TaskCmd())
	rootCmd.AddCommand(cli.PieceCmd())
	rootCmd.AddCommand(cli.OrderCmd())

	// Capacity
	rootCmd.AddCommand(cli.AvailabilityCmd())
	rootCmd.AddCommand(cli.CapacityCmd())

	// Audit
	rootCmd.AddCommand(cli.LogCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
