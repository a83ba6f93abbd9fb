package cmd

import (
	"fmt"
	"math/big"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vaibhav0806/prophit-sub001/internal/state"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show the positions recorded in the session state file",
	Long: `Reads the agent's state file and prints every recorded position,
including stranded single-leg fills that need manual attention.`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var positionsStateFile string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsStateFile, "state", "", "State file path (defaults to STATE_FILE)")
}

func runPositions(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	path := positionsStateFile
	if path == "" {
		path = cfg.StateFile
	}

	file, err := state.New(&state.Config{Path: path, Logger: logger})
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}

	snap, err := file.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if snap == nil || len(snap.Positions) == 0 {
		fmt.Println("No positions recorded.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Position", "Market", "YES venue", "NO venue", "YES shares", "NO shares", "Cost", "Opened", "Status")

	stranded := 0
	for _, p := range snap.Positions {
		status := positionStatus(p)
		if status == statusStranded {
			stranded++
		}

		table.Append(
			truncate(p.ID, 12),
			truncate(p.MarketID, 14),
			string(p.ProtocolA),
			string(p.ProtocolB),
			types.FormatUsdt(p.SharesA),
			types.FormatUsdt(p.SharesB),
			"$"+types.FormatUsdt(new(big.Int).Add(zeroWhenNil(p.CostA), zeroWhenNil(p.CostB))),
			formatUnixMs(p.OpenedAt),
			status,
		)
	}

	table.Render()
	fmt.Printf("%d positions, %d trades this session", len(snap.Positions), snap.TradesExecuted)
	if stranded > 0 {
		fmt.Printf(", %d stranded", stranded)
	}
	fmt.Println()

	return nil
}

const (
	statusOpen     = "open"
	statusClosed   = "closed"
	statusStranded = "STRANDED"
)

// positionStatus labels a position for the table. A closed position stays
// "closed" even when one leg never filled; the stranded flag only matters
// while the position is still live.
func positionStatus(p types.Position) string {
	switch {
	case p.Closed:
		return statusClosed
	case p.Stranded():
		return statusStranded
	default:
		return statusOpen
	}
}

func zeroWhenNil(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}

	return x
}
