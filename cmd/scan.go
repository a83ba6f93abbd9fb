package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/markets"
	"github.com/vaibhav0806/prophit-sub001/internal/quotes"
	"github.com/vaibhav0806/prophit-sub001/internal/scanner"
	"github.com/vaibhav0806/prophit-sub001/pkg/config"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery and quote pass and print the spread table",
	Long: `Fetches the current market maps, polls one round of order books from
every venue, and prints the opportunities the agent would act on.

No orders are placed.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
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

	feed, err := buildDiscovery(cfg, logger, vt)
	if err != nil {
		return fmt.Errorf("create discovery: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err = feed.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh discovery: %w", err)
	}

	snap := feed.Snapshot()
	if snap == nil || len(snap.Fingerprints()) == 0 {
		fmt.Println("No matched markets to scan.")
		return nil
	}

	providers, err := scanProviders(cfg, logger, vt)
	if err != nil {
		return err
	}

	store := quotes.NewStore(logger)
	for _, p := range providers {
		p.SetMarkets(snap.Venue(p.Protocol()))
		store.Put(p.FetchQuotes(ctx))
	}

	scan, err := scanner.New(&scanner.Config{
		MinSpreadBps:    cfg.MinSpreadBps,
		MaxSpreadBps:    cfg.MaxSpreadBps,
		MinFillUsdt:     cfg.MinFillUsdt,
		MaxPositionSize: cfg.MaxPositionSize,
		Freshness:       cfg.QuoteFreshnessMax,
		Logger:          logger,
	}, store)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}

	opps := scan.Scan()
	if len(opps) == 0 {
		fmt.Printf("No opportunities across %d matched markets.\n", len(snap.Fingerprints()))
		return nil
	}

	printOpportunities(os.Stdout, opps)

	return nil
}

func scanProviders(cfg *config.Config, logger *zap.Logger, vt *venueTriple) ([]*quotes.Provider, error) {
	fees, err := markets.NewFeeService(&markets.Config{
		Fetchers: map[types.Protocol]markets.Fetcher{
			types.ProtocolPredict:  vt.predict,
			types.ProtocolProbable: vt.probable,
			types.ProtocolOpinion:  vt.opinion,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create fee service: %w", err)
	}

	quoteCfg := &quotes.Config{Fees: fees, Logger: logger}

	predictProvider, err := quotes.NewPredictProvider(vt.predict, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create predict provider: %w", err)
	}
	probableProvider, err := quotes.NewProbableProvider(vt.probable, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create probable provider: %w", err)
	}
	opinionProvider, err := quotes.NewOpinionProvider(vt.opinion, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create opinion provider: %w", err)
	}

	return []*quotes.Provider{predictProvider, probableProvider, opinionProvider}, nil
}

func printOpportunities(out io.Writer, opps []types.ArbitOpportunity) {
	table := tablewriter.NewWriter(out)
	table.Header("#", "Market", "YES venue", "NO venue", "YES", "NO", "Cost", "Net bps", "Size", "Est profit")

	for i, opp := range opps {
		table.Append(
			strconv.Itoa(i+1),
			truncate(opp.Title, 32),
			string(opp.ProtocolA),
			string(opp.ProtocolB),
			types.FormatPrice(opp.YesPriceA),
			types.FormatPrice(opp.NoPriceB),
			types.FormatPrice(opp.TotalCost),
			strconv.FormatInt(opp.SpreadBps, 10),
			types.FormatUsdt(opp.Shares),
			"$"+types.FormatUsdt(opp.EstProfit),
		)
	}

	table.Render()
	fmt.Fprintln(out, "  Cost = YES + NO of $1.00 payout | Net bps = spread after both venue fees")
	fmt.Fprintln(out, "  Size = shares the books and budget support | Est profit at that size")
}
