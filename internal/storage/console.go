package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints a spread opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *types.ArbitOpportunity) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("🎯 SPREAD OPPORTUNITY DETECTED\n")
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", shortID(opp.ID))
	fmt.Printf("Market:   %s\n", opp.MarketID)
	fmt.Printf("Question: %s\n", opp.Title)
	fmt.Printf("Quoted:   %s\n", time.UnixMilli(opp.QuotedAt).UTC().Format("2006-01-02 15:04:05"))
	fmt.Println(consoleRule)
	fmt.Printf("📊 PRICES\n")
	fmt.Printf("  YES Ask:  %s @ %s size (%s)\n", types.FormatPrice(opp.YesPriceA), types.FormatUsdt(opp.LiquidityA), opp.ProtocolA)
	fmt.Printf("  NO Ask:   %s @ %s size (%s)\n", types.FormatPrice(opp.NoPriceB), types.FormatUsdt(opp.LiquidityB), opp.ProtocolB)
	fmt.Printf("  Sum:      %s (gross %d bps)\n", types.FormatPrice(opp.TotalCost), opp.GrossSpreadBps)
	fmt.Println(consoleRule)
	fmt.Printf("💰 PROFIT ANALYSIS\n")
	fmt.Printf("  Trade Size:      %s shares\n", types.FormatUsdt(opp.Shares))
	fmt.Printf("  Fees:            %s (%d + %d bps)\n", types.FormatPrice(opp.FeesDeducted), opp.FeeBpsA, opp.FeeBpsB)
	fmt.Printf("  Net Spread:      %d bps\n", opp.SpreadBps)
	fmt.Printf("  Est Profit:      $%s\n", types.FormatUsdt(opp.EstProfit))
	if opp.SpreadBps > 0 {
		fmt.Printf("  ✅ PROFITABLE after fees!\n")
	} else {
		fmt.Printf("  ❌ NOT profitable after fees\n")
	}
	fmt.Println(consoleRule)

	return nil
}

// StorePosition pretty-prints an executed position to console.
func (c *ConsoleStorage) StorePosition(_ context.Context, pos *types.Position) error {
	fmt.Println("\n" + consoleRule)
	if pos.Stranded() {
		fmt.Printf("⚠️  STRANDED POSITION\n")
	} else {
		fmt.Printf("🧾 POSITION OPENED\n")
	}
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", shortID(pos.ID))
	fmt.Printf("Market:   %s\n", pos.MarketID)
	fmt.Printf("Opened:   %s\n", time.UnixMilli(pos.OpenedAt).UTC().Format("2006-01-02 15:04:05"))
	fmt.Printf("  YES (%s): %s shares / $%s\n", pos.ProtocolA, types.FormatUsdt(pos.SharesA), types.FormatUsdt(pos.CostA))
	fmt.Printf("  NO  (%s): %s shares / $%s\n", pos.ProtocolB, types.FormatUsdt(pos.SharesB), types.FormatUsdt(pos.CostB))
	fmt.Printf("  Total Cost:      $%s\n", types.FormatUsdt(pos.TotalCost()))
	fmt.Println(consoleRule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
