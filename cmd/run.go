package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaibhav0806/prophit-sub001/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage agent",
	Long: `Starts the arbitrage agent, which will:
1. Discover equivalent binary markets across Predict, Probable and Opinion
2. Poll their order books into the quote store
3. Scan for complementary YES/NO spreads below the $1.00 payout
4. Execute both legs and archive the resulting positions

Use --dry-run to log simulated fills without sending orders.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

//nolint:gochecknoglobals // Cobra boilerplate
var runDryRun bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Simulate order flow without sending anything")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{DryRun: runDryRun})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
