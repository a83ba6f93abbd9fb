package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vaibhav0806/prophit-sub001/internal/discovery"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List matched market pairs or one venue's catalog",
	Long: `Without flags, runs the matching pipeline (or loads the static maps)
and prints every cross-venue market pair the agent would track.

With --venue, prints that venue's raw catalog instead.`,
	Args: cobra.NoArgs,
	RunE: runMarkets,
}

//nolint:gochecknoglobals // Cobra boilerplate
var marketsVenue string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
	marketsCmd.Flags().StringVar(&marketsVenue, "venue", "", "List one venue's catalog (predict, probable or opinion)")
}

func runMarkets(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if marketsVenue != "" {
		clients, err := vt.byName(marketsVenue)
		if err != nil {
			return err
		}

		list, err := clients[0].ListMarkets(ctx)
		if err != nil {
			return fmt.Errorf("%s catalog: %w", marketsVenue, err)
		}
		if len(list) == 0 {
			fmt.Printf("No markets listed on %s.\n", marketsVenue)
			return nil
		}

		printCatalog(os.Stdout, list)

		return nil
	}

	feed, err := buildDiscovery(cfg, logger, vt)
	if err != nil {
		return fmt.Errorf("create discovery: %w", err)
	}

	err = feed.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh discovery: %w", err)
	}

	snap := feed.Snapshot()
	if snap == nil || len(snap.Fingerprints()) == 0 {
		fmt.Println("No matched market pairs.")
		return nil
	}

	printPairs(os.Stdout, snap)

	return nil
}

func printCatalog(out io.Writer, list []types.DiscoveredMarket) {
	table := tablewriter.NewWriter(out)
	table.Header("#", "Market", "Title", "YES token", "NO token", "Resolves")

	for i, m := range list {
		table.Append(
			strconv.Itoa(i+1),
			m.ID,
			truncate(m.Title, 40),
			truncate(m.YesTokenID, 14),
			truncate(m.NoTokenID, 14),
			formatUnixMs(m.ResolvesAt),
		)
	}

	table.Render()
}

func printPairs(out io.Writer, snap *discovery.Result) {
	table := tablewriter.NewWriter(out)
	table.Header("Pair", "Title", "Predict", "Probable", "Opinion", "Flipped")

	fingerprints := snap.Fingerprints()
	for _, fp := range fingerprints {
		row := map[types.Protocol]string{}
		var title string
		var flipped []string

		for _, p := range types.AllProtocols() {
			m, ok := snap.Venue(p)[fp]
			if !ok {
				row[p] = "-"
				continue
			}
			row[p] = m.MarketID
			if title == "" {
				title = m.Title
			}
			if m.PolarityFlipped {
				flipped = append(flipped, string(p))
			}
		}

		flipLabel := "-"
		if len(flipped) > 0 {
			flipLabel = strings.Join(flipped, ",")
		}

		table.Append(
			truncate(fp, 14),
			truncate(title, 40),
			row[types.ProtocolPredict],
			row[types.ProtocolProbable],
			row[types.ProtocolOpinion],
			flipLabel,
		)
	}

	table.Render()
	fmt.Fprintf(out, "%d matched pairs. Flipped venues quote the outcomes in inverted order.\n", len(fingerprints))
}

// formatUnixMs renders a millisecond timestamp, or "-" when the venue
// omitted one.
func formatUnixMs(ms int64) string {
	if ms == 0 {
		return "-"
	}

	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
