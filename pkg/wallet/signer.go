package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	approveGasLimit = uint64(100_000)
	sweepGasLimit   = uint64(80_000)
	vaultGasLimit   = uint64(800_000)

	receiptPollInterval = 2 * time.Second
	receiptWait         = 2 * time.Minute
)

// maxUint256 is the unlimited approval amount.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)) //nolint:gochecknoglobals // computed once

// Signer owns the trading key and sends the transactions that run
// before and outside of order flow: approvals, proxy sweeps, and vault
// executions. One transaction is in flight at a time; the account
// nonce comes fresh from the node on every send.
type Signer struct {
	rpcURL  string
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	logger  *zap.Logger

	txMu sync.Mutex
}

// SignerConfig holds signer configuration.
type SignerConfig struct {
	RPCEndpoint string
	PrivateKey  string
	ChainID     int64
	Logger      *zap.Logger
}

// NewSigner parses the key and builds a transaction signer.
func NewSigner(cfg *SignerConfig) (s *Signer, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RPCEndpoint == "" {
		return nil, errors.New("RPC endpoint cannot be empty")
	}

	if cfg.ChainID <= 0 {
		return nil, errors.New("chain id must be positive")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	signer := &Signer{
		rpcURL:  cfg.RPCEndpoint,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(cfg.ChainID),
		logger:  cfg.Logger,
	}

	return signer, nil
}

// Address returns the account transactions are sent from.
func (s *Signer) Address() common.Address {
	return s.address
}

// EnsureERC20Allowance grants spender an unlimited allowance when the
// current one is below min. A mined-but-reverted approval is logged
// and swallowed so one bad venue cannot stop the others from trading.
func (s *Signer) EnsureERC20Allowance(ctx context.Context, token, spender common.Address, min *big.Int) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	current, err := erc20Allowance(ctx, client, token, s.address, spender)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}

	if min != nil && current.Cmp(min) >= 0 {
		s.logger.Debug("allowance-sufficient",
			zap.String("token", token.Hex()),
			zap.String("spender", spender.Hex()))
		return nil
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20WriteABI))
	if err != nil {
		return fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("approve", spender, maxUint256)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}

	receipt, err := s.sendAndWait(ctx, client, token, data, approveGasLimit)
	if err != nil {
		return fmt.Errorf("send approve: %w", err)
	}

	ApprovalsSentTotal.WithLabelValues("erc20").Inc()

	if receipt.Status == gethtypes.ReceiptStatusFailed {
		TxRevertsTotal.Inc()
		s.logger.Error("approval-reverted",
			zap.String("token", token.Hex()),
			zap.String("spender", spender.Hex()),
			zap.String("tx", receipt.TxHash.Hex()))
		return nil
	}

	s.logger.Info("allowance-granted",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("gas-used", receipt.GasUsed))

	return nil
}

// EnsureERC1155Approval makes operator an approved mover of the
// outcome tokens held at token. Already-approved wallets return
// without a send.
func (s *Signer) EnsureERC1155Approval(ctx context.Context, token, operator common.Address) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	approved, err := isApprovedForAll(ctx, client, token, s.address, operator)
	if err != nil {
		return fmt.Errorf("read approval: %w", err)
	}

	if approved {
		s.logger.Debug("operator-already-approved",
			zap.String("token", token.Hex()),
			zap.String("operator", operator.Hex()))
		return nil
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc1155ApprovalABI))
	if err != nil {
		return fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("setApprovalForAll", operator, true)
	if err != nil {
		return fmt.Errorf("pack setApprovalForAll: %w", err)
	}

	receipt, err := s.sendAndWait(ctx, client, token, data, approveGasLimit)
	if err != nil {
		return fmt.Errorf("send setApprovalForAll: %w", err)
	}

	ApprovalsSentTotal.WithLabelValues("erc1155").Inc()

	if receipt.Status == gethtypes.ReceiptStatusFailed {
		TxRevertsTotal.Inc()
		s.logger.Error("approval-reverted",
			zap.String("token", token.Hex()),
			zap.String("operator", operator.Hex()),
			zap.String("tx", receipt.TxHash.Hex()))
		return nil
	}

	s.logger.Info("operator-approved",
		zap.String("token", token.Hex()),
		zap.String("operator", operator.Hex()),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("gas-used", receipt.GasUsed))

	return nil
}

// sendAndWait signs, submits and mines one transaction. The mutex
// keeps concurrent approval flows from racing on the account nonce.
func (s *Signer) sendAndWait(ctx context.Context, client *ethclient.Client, to common.Address, data []byte, gasLimit uint64) (receipt *gethtypes.Receipt, err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	nonce, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := gethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := gethtypes.SignTx(tx, gethtypes.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	err = client.SendTransaction(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	s.logger.Debug("transaction-sent",
		zap.String("tx", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce))

	return s.waitReceipt(ctx, client, signedTx.Hash())
}

// waitReceipt polls until the transaction mines, the wait budget runs
// out, or the context ends.
func (s *Signer) waitReceipt(ctx context.Context, client *ethclient.Client, txHash common.Hash) (receipt *gethtypes.Receipt, err error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(receiptWait)

	for {
		receipt, err = client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for receipt %s", txHash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
