package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List open orders across the venues",
	Args:  cobra.NoArgs,
	RunE:  runOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var ordersVenue string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.Flags().StringVar(&ordersVenue, "venue", "", "Only this venue (predict, probable or opinion)")
}

func runOrders(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	vt, err := buildVenues(cfg, logger)
	if err != nil {
		return err
	}
	clients, err := vt.byName(ordersVenue)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Venue", "Order", "Market", "Side", "Price", "Open size", "Created")

	total := 0
	for _, c := range clients {
		orders, err := c.GetOpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("%s open orders: %w", c.Protocol(), err)
		}

		for _, o := range orders {
			table.Append(
				string(c.Protocol()),
				truncate(o.OrderID, 16),
				truncate(o.MarketID, 14),
				o.Side.String(),
				types.FormatPrice(o.Price),
				types.FormatUsdt(o.Shares),
				formatUnixMs(o.CreatedAt),
			)
		}
		total += len(orders)
	}

	if total == 0 {
		fmt.Println("No open orders.")
		return nil
	}

	table.Render()
	fmt.Printf("%d open orders.\n", total)

	return nil
}
