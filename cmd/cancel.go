package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelCmd = &cobra.Command{
	Use:   "cancel [order-id...]",
	Short: "Cancel open orders",
	Long: `Cancels the given order ids on one venue, or every open order with
--all.

Examples:
  # Cancel two orders on Probable
  prophit cancel --venue probable 0xabc 0xdef

  # Cancel every open order everywhere
  prophit cancel --all`,
	RunE: runCancel,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	cancelVenue string
	cancelAll   bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelCmd)
	cancelCmd.Flags().StringVar(&cancelVenue, "venue", "", "Venue the order ids belong to")
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "Cancel every open order")
}

func runCancel(cmd *cobra.Command, args []string) error {
	if !cancelAll && len(args) == 0 {
		return errors.New("pass order ids or --all")
	}
	if !cancelAll && cancelVenue == "" {
		return errors.New("--venue is required when cancelling by id")
	}

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
	clients, err := vt.byName(cancelVenue)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if !cancelAll {
		client := clients[0]
		for _, orderID := range args {
			err := client.CancelOrder(ctx, orderID)
			if err != nil {
				return fmt.Errorf("cancel %s: %w", orderID, err)
			}
			fmt.Printf("%s: cancelled %s\n", client.Protocol(), orderID)
		}

		return nil
	}

	for _, client := range clients {
		orders, err := client.GetOpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("%s open orders: %w", client.Protocol(), err)
		}

		cancelled := 0
		for _, o := range orders {
			err := client.CancelOrder(ctx, o.OrderID)
			if err != nil {
				fmt.Printf("%s: failed to cancel %s: %v\n", client.Protocol(), o.OrderID, err)
				continue
			}
			cancelled++
		}
		fmt.Printf("%s: cancelled %d of %d open orders\n", client.Protocol(), cancelled, len(orders))
	}

	return nil
}
