package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
	"github.com/vaibhav0806/prophit-sub001/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show wallet gas, USDT and venue allowances",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

// unlimitedAllowance is the display threshold; real unlimited approvals
// sit near 2^256 and any allowance past a trillion USDT reads the same.
var unlimitedAllowance = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) //nolint:gochecknoglobals // computed once

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	signer, err := buildSigner(cfg, logger)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	client, err := wallet.NewClient(cfg.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	spenders := make(map[string]common.Address)
	if cfg.PredictExchangeAddress != "" {
		spenders[string(types.ProtocolPredict)] = common.HexToAddress(cfg.PredictExchangeAddress)
	}
	if cfg.ProbableExchangeAddress != "" {
		spenders[string(types.ProtocolProbable)] = common.HexToAddress(cfg.ProbableExchangeAddress)
	}
	if cfg.OpinionExchangeAddress != "" {
		spenders[string(types.ProtocolOpinion)] = common.HexToAddress(cfg.OpinionExchangeAddress)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balances, err := client.GetBalances(ctx, signer.Address(), common.HexToAddress(cfg.USDTAddress), spenders)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Gas:     %s\n", decimal.NewFromBigInt(balances.Gas, -18).String())
	fmt.Printf("USDT:    %s\n\n", types.FormatUsdt(balances.USDT))

	if len(balances.Allowances) == 0 {
		fmt.Println("No venue exchange addresses configured.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Venue", "Spender", "USDT allowance")

	for _, p := range types.AllProtocols() {
		allowance, ok := balances.Allowances[string(p)]
		if !ok {
			continue
		}

		label := types.FormatUsdt(allowance)
		if allowance.Cmp(unlimitedAllowance) > 0 {
			label = "unlimited"
		}

		table.Append(string(p), spenders[string(p)].Hex(), label)
	}

	table.Render()

	return nil
}
