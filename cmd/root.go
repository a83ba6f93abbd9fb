package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "prophit",
	Short: "Cross-venue prediction market arbitrage agent",
	Long: `Prophit hunts complementary YES/NO spreads across the Predict,
Probable and Opinion prediction market venues.

The agent discovers equivalent binary markets on all three venues, polls
their order books into a quote store, and executes both legs whenever
buying YES on one venue and NO on another costs less than the $1.00
settlement payout.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
