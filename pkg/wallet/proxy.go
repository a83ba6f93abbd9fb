package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// safeABI covers the two reads that prove the signing key controls a
// safe proxy on its own.
const safeABI = `[
	{"constant":true,"inputs":[],"name":"getThreshold","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"getOwners","outputs":[{"name":"","type":"address[]"}],"type":"function"}
]`

// PrepareSafeProxy verifies the proxy is controllable by the signing
// key alone (threshold one, signer among owners) and sweeps the
// signer's USDT into it when the proxy holds less than floor. The
// proxy fronts as order maker on venues that trade through a smart
// account, so it must hold the collateral before orders go out.
func (s *Signer) PrepareSafeProxy(ctx context.Context, proxy, token common.Address, floor *big.Int) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	parsedABI, err := abi.JSON(strings.NewReader(safeABI))
	if err != nil {
		return fmt.Errorf("parse ABI: %w", err)
	}

	threshold, err := safeThreshold(ctx, client, parsedABI, proxy)
	if err != nil {
		return fmt.Errorf("read threshold: %w", err)
	}
	if threshold.Cmp(big.NewInt(1)) != 0 {
		return fmt.Errorf("proxy %s threshold is %s, need 1", proxy.Hex(), threshold.String())
	}

	owners, err := safeOwners(ctx, client, parsedABI, proxy)
	if err != nil {
		return fmt.Errorf("read owners: %w", err)
	}
	if !containsAddress(owners, s.address) {
		return fmt.Errorf("signer %s is not an owner of proxy %s", s.address.Hex(), proxy.Hex())
	}

	proxyBalance, err := erc20Balance(ctx, client, token, proxy)
	if err != nil {
		return fmt.Errorf("read proxy balance: %w", err)
	}

	if floor == nil || proxyBalance.Cmp(floor) >= 0 {
		s.logger.Debug("proxy-funded",
			zap.String("proxy", proxy.Hex()),
			zap.String("balance", proxyBalance.String()))
		return nil
	}

	signerBalance, err := erc20Balance(ctx, client, token, s.address)
	if err != nil {
		return fmt.Errorf("read signer balance: %w", err)
	}

	if signerBalance.Sign() <= 0 {
		s.logger.Warn("proxy-underfunded-with-nothing-to-sweep",
			zap.String("proxy", proxy.Hex()),
			zap.String("proxy-balance", proxyBalance.String()),
			zap.String("floor", floor.String()))
		return nil
	}

	writeABI, err := abi.JSON(strings.NewReader(erc20WriteABI))
	if err != nil {
		return fmt.Errorf("parse ABI: %w", err)
	}

	data, err := writeABI.Pack("transfer", proxy, signerBalance)
	if err != nil {
		return fmt.Errorf("pack transfer: %w", err)
	}

	receipt, err := s.sendAndWait(ctx, client, token, data, sweepGasLimit)
	if err != nil {
		return fmt.Errorf("send sweep: %w", err)
	}

	if receipt.Status == gethtypes.ReceiptStatusFailed {
		TxRevertsTotal.Inc()
		return fmt.Errorf("sweep reverted: tx %s", receipt.TxHash.Hex())
	}

	ProxySweepsTotal.Inc()
	s.logger.Info("proxy-swept",
		zap.String("proxy", proxy.Hex()),
		zap.String("amount", signerBalance.String()),
		zap.String("tx", receipt.TxHash.Hex()))

	return nil
}

// safeThreshold reads the proxy's confirmation threshold.
func safeThreshold(ctx context.Context, client *ethclient.Client, parsedABI abi.ABI, proxy common.Address) (threshold *big.Int, err error) {
	data, err := parsedABI.Pack("getThreshold")
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &proxy,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	threshold = new(big.Int).SetBytes(result)
	return threshold, nil
}

// safeOwners reads the proxy's owner set.
func safeOwners(ctx context.Context, client *ethclient.Client, parsedABI abi.ABI, proxy common.Address) (owners []common.Address, err error) {
	data, err := parsedABI.Pack("getOwners")
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &proxy,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	err = parsedABI.UnpackIntoInterface(&owners, "getOwners", result)
	if err != nil {
		return nil, fmt.Errorf("unpack result: %w", err)
	}

	return owners, nil
}

func containsAddress(set []common.Address, addr common.Address) bool {
	for _, a := range set {
		if a == addr {
			return true
		}
	}

	return false
}
