package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "barberq",
	Short: "Barbershop walk-in queue",
	Long: `barberq runs the walk-in turn queue for a barbershop: customers take a
number, the barber completes tickets with a service price, and the day's
history and revenue ledgers are kept for the finance reports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults to $BARBERQ_CONFIG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
