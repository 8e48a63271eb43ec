package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invscan/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invscan",
	Short: "invscan - resolve scanned receipts and e-invoices into structured records",
	Long: `invscan resolves scanned receipts and uniform e-invoices into structured
financial records.

It merges every available source for a document - the machine-readable code
payload, recognized text from Google Cloud Vision or Document AI, and the
national invoice verification service - into one record with a confidence
score and explicit provenance.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("invscan executed")

		fmt.Println("Welcome to invscan!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
