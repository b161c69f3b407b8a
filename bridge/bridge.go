// Package bridge checks that a cross-chain bet was paid for on its origin
// chain: a confirmed transfer from the bettor to the chain's bridge gateway.
package bridge

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gobetrelay/config"
	"gobetrelay/estimator"
	"gobetrelay/types"
)

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Chain is an origin EVM chain reader
type Chain interface {
	ChainID() *big.Int
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

type Verifier struct {
	registry *config.Registry
	chains   map[string]Chain
	logger   *zap.Logger
}

func NewVerifier(registry *config.Registry, chains map[string]Chain, logger *zap.Logger) *Verifier {
	return &Verifier{registry: registry, chains: chains, logger: logger}
}

// Verify accepts txHash as payment of at least minAmount (origin native units)
// from originAddress to the origin chain's gateway.
func (v *Verifier) Verify(ctx context.Context, originChain, originAddress, txHash string, minAmount decimal.Decimal) (types.BridgePayment, error) {
	var payment types.BridgePayment

	chain, err := v.registry.Lookup(originChain)
	if err != nil {
		return payment, err
	}
	if config.Family(originChain) != types.FamilyEVM {
		return payment, types.Errorf(types.ErrUnsupportedChainFamily, "payments on %s cannot be verified", originChain)
	}
	if !common.IsHexAddress(chain.Gateway) {
		return payment, types.Errorf(types.ErrBridgePaymentInvalid, "%s has no bridge gateway", originChain)
	}
	if !txHashRe.MatchString(txHash) {
		return payment, types.Errorf(types.ErrInvalidRequest, "bridgeId %q is not a transaction hash", txHash)
	}
	client, ok := v.chains[originChain]
	if !ok {
		return payment, types.Errorf(types.ErrRpcUnavailable, "no rpc client for %s", originChain)
	}

	hash := common.HexToHash(txHash)
	log := v.logger.With(zap.String("chain", originChain), zap.String("bridge_tx", txHash))

	tx, pending, err := client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return payment, types.NewError(types.ErrBridgePaymentInvalid, "bridge transaction not found")
	}
	if err != nil {
		return payment, lookupError(err)
	}

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(client.ChainID()), tx)
	if err != nil {
		return payment, types.WrapError(types.ErrBridgePaymentInvalid, "cannot recover bridge transaction sender", err)
	}
	payment.TxHash = hash.Hex()
	payment.From = from.Hex()
	payment.Amount = estimator.FromBaseUnits(tx.Value(), chain.Decimals).String()
	if tx.To() != nil {
		payment.To = tx.To().Hex()
	}

	if !strings.EqualFold(from.Hex(), originAddress) {
		return payment, types.Errorf(types.ErrBridgePaymentInvalid, "bridge transaction was sent by %s, not %s", from.Hex(), originAddress)
	}
	if tx.To() == nil || *tx.To() != common.HexToAddress(chain.Gateway) {
		return payment, types.NewError(types.ErrBridgePaymentInvalid, "bridge transaction is not addressed to the gateway")
	}
	required := estimator.ToBaseUnits(minAmount, chain.Decimals)
	if tx.Value().Cmp(required) < 0 {
		return payment, types.Errorf(types.ErrBridgePaymentInvalid, "bridge paid %s %s, at least %s required", payment.Amount, chain.Currency, minAmount)
	}

	if pending {
		return payment, types.NewError(types.ErrBridgePaymentPending, "bridge transaction is not mined yet")
	}
	receipt, err := client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return payment, types.NewError(types.ErrBridgePaymentPending, "bridge transaction is not confirmed yet")
	}
	if err != nil {
		return payment, lookupError(err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return payment, types.NewError(types.ErrBridgePaymentInvalid, "bridge transaction failed on chain")
	}
	payment.BlockNumber = receipt.BlockNumber.Uint64()

	log.Debug("bridge payment accepted", zap.String("amount", payment.Amount), zap.Uint64("block", payment.BlockNumber))
	return payment, nil
}

func lookupError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.ErrTimeout, "bridge transaction lookup timed out", err)
	}
	return types.WrapError(types.ErrRpcUnavailable, "cannot read origin chain", err)
}
