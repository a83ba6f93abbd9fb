package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Grant the venue exchanges their USDT and outcome-token approvals",
	Long: `Checks the current USDT allowance and conditional-token approval for
every venue exchange and submits the missing approval transactions.

The agent runs the same pass on startup; this command exists so the
allowances can be staged before trading goes live.`,
	Args: cobra.NoArgs,
	RunE: runApprove,
}

//nolint:gochecknoglobals // Cobra boilerplate
var approveVenue string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().StringVar(&approveVenue, "venue", "", "Only this venue (predict, probable or opinion)")
}

func runApprove(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.DryRun {
		fmt.Println("DRY_RUN is set; venue clients skip the allowance pass.")
	}

	vt, err := buildVenues(cfg, logger)
	if err != nil {
		return err
	}
	clients, err := vt.byName(approveVenue)
	if err != nil {
		return err
	}

	// Approvals are chain transactions; give each one room to mine.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, client := range clients {
		err := client.EnsureApprovals(ctx)
		if err != nil {
			return fmt.Errorf("%s approvals: %w", client.Protocol(), err)
		}
		fmt.Printf("%s: approvals ensured\n", client.Protocol())
	}

	return nil
}
