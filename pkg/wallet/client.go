// Package wallet handles the chain-facing side of trading: balance and
// allowance reads, the approval grants venue exchanges need before they
// can move funds, safe-proxy preparation for venues that trade through
// a smart account, and the vault execution pathway.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ABI fragments for the token calls the wallet makes. Parsed per call;
// these paths run at startup and on the tracker interval, not per order.
const (
	erc20ReadABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

	erc20WriteABI = `[
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

	erc1155ApprovalABI = `[
	{"constant":false,"inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`
)

// Client reads wallet state from the chain.
type Client struct {
	rpcURL string
	logger *zap.Logger
}

// Balances holds on-chain state for the signing wallet.
type Balances struct {
	Gas        *big.Int            // native token, in wei
	USDT       *big.Int            // in 6-decimal units
	Allowances map[string]*big.Int // per venue, in 6-decimal units
}

// NewClient creates a read-only wallet client.
func NewClient(rpcURL string, logger *zap.Logger) (c *Client, err error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client := &Client{
		rpcURL: rpcURL,
		logger: logger,
	}

	return client, nil
}

// GetBalances fetches the gas balance, the USDT balance, and the USDT
// allowance granted to each named spender.
func (c *Client) GetBalances(ctx context.Context, owner, usdt common.Address, spenders map[string]common.Address) (balances *Balances, err error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	gasBalance, err := client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("get gas balance: %w", err)
	}

	usdtBalance, err := erc20Balance(ctx, client, usdt, owner)
	if err != nil {
		return nil, fmt.Errorf("get USDT balance: %w", err)
	}

	allowances := make(map[string]*big.Int, len(spenders))
	for venue, spender := range spenders {
		allowance, err := erc20Allowance(ctx, client, usdt, owner, spender)
		if err != nil {
			return nil, fmt.Errorf("get %s allowance: %w", venue, err)
		}
		allowances[venue] = allowance
	}

	balances = &Balances{
		Gas:        gasBalance,
		USDT:       usdtBalance,
		Allowances: allowances,
	}

	return balances, nil
}

// erc20Balance fetches an ERC20 token balance.
func erc20Balance(ctx context.Context, client *ethclient.Client, token, owner common.Address) (balance *big.Int, err error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ReadABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	balance = new(big.Int).SetBytes(result)
	return balance, nil
}

// erc20Allowance fetches an ERC20 token allowance.
func erc20Allowance(ctx context.Context, client *ethclient.Client, token, owner, spender common.Address) (allowance *big.Int, err error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ReadABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	allowance = new(big.Int).SetBytes(result)
	return allowance, nil
}

// isApprovedForAll fetches an ERC1155 operator approval flag.
func isApprovedForAll(ctx context.Context, client *ethclient.Client, token, owner, operator common.Address) (approved bool, err error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc1155ApprovalABI))
	if err != nil {
		return false, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("isApprovedForAll", owner, operator)
	if err != nil {
		return false, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return false, fmt.Errorf("call contract: %w", err)
	}

	err = parsedABI.UnpackIntoInterface(&approved, "isApprovedForAll", result)
	if err != nil {
		return false, fmt.Errorf("unpack result: %w", err)
	}

	return approved, nil
}
