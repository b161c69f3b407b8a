package handlers

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC/predictionmarket"
	"gobetrelay/addressmap"
	"gobetrelay/config"
	"gobetrelay/estimator"
	"gobetrelay/signature"
	"gobetrelay/types"
)

type Relayer interface {
	Relay(ctx context.Context, intent types.BetIntent, proof types.SignatureProof) (types.RelayResult, error)
}

type BridgeVerifier interface {
	Verify(ctx context.Context, originChain, originAddress, txHash string, minAmount decimal.Decimal) (types.BridgePayment, error)
}

type Store interface {
	Ping(ctx context.Context) error
	FindAllByStatus(ctx context.Context, status string) ([]*types.RelayRecord, error)
	GetAddressBookRecord(ctx context.Context, originChain, originAddress string, version int) (*types.AddressBookRecord, error)
	UpsertAddressBookRecord(ctx context.Context, rec *types.AddressBookRecord) error
}

// Chain is the destination chain
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

type MarketLister interface {
	List() []predictionmarket.Market
}

// API holds what the HTTP handlers need
type API struct {
	Relayer      Relayer
	Verifier     *signature.Verifier
	Mapper       *addressmap.Mapper
	Estimator    *estimator.Estimator
	Registry     *config.Registry
	Bridge       BridgeVerifier
	Store        Store
	Chain        Chain
	Markets      MarketLister
	RelayAddress common.Address
	Logger       *zap.Logger
}
