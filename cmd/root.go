package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sponsorships",
	Short: "Sponsorship payments microservice",
	Long:  "A sponsorship payments microservice for provider checkouts, webhook reconciliation, and order lifecycle jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
