// Package markets keeps a local copy of the prediction markets so stake
// bounds can be checked without a chain call.
package markets

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC/predictionmarket"
	"gobetrelay/estimator"
	"gobetrelay/metrics"
	"gobetrelay/types"
)

type Book struct {
	caller   predictionmarket.Caller
	contract common.Address
	decimals int32
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	markets map[uint64]predictionmarket.Market
	synced  time.Time
}

func NewBook(caller predictionmarket.Caller, contract common.Address, decimals int32, m *metrics.Metrics, logger *zap.Logger) *Book {
	return &Book{
		caller:   caller,
		contract: contract,
		decimals: decimals,
		logger:   logger,
		metrics:  m,
		markets:  make(map[uint64]predictionmarket.Market),
	}
}

// Sync replaces the cached markets with the contract's full list
func (b *Book) Sync(ctx context.Context) (int, error) {
	all, err := predictionmarket.GetAllMarkets(ctx, b.caller, b.contract)
	if err != nil {
		return 0, chainError(err)
	}

	fresh := make(map[uint64]predictionmarket.Market, len(all))
	for _, m := range all {
		if m.Exists() {
			fresh[m.Id.Uint64()] = m
		}
	}

	b.mu.Lock()
	b.markets = fresh
	b.synced = time.Now()
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.Markets.Set(float64(len(fresh)))
	}
	return len(fresh), nil
}

// Get returns a cached market, loading it from the contract on a miss
func (b *Book) Get(ctx context.Context, marketID uint64) (predictionmarket.Market, error) {
	b.mu.RLock()
	m, ok := b.markets[marketID]
	b.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := predictionmarket.GetMarket(ctx, b.caller, b.contract, marketID)
	if err != nil {
		return m, chainError(err)
	}
	if !m.Exists() {
		return m, types.Errorf(types.ErrInvalidRequest, "market %d does not exist", marketID)
	}

	b.mu.Lock()
	b.markets[marketID] = m
	n := len(b.markets)
	b.mu.Unlock()
	if b.metrics != nil {
		b.metrics.Markets.Set(float64(n))
	}
	b.logger.Debug("market loaded on demand", zap.Uint64("market", marketID))
	return m, nil
}

func (b *Book) Bounds(ctx context.Context, marketID uint64) (decimal.Decimal, decimal.Decimal, error) {
	m, err := b.Get(ctx, marketID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return estimator.FromBaseUnits(m.MinBet, b.decimals), estimator.FromBaseUnits(m.MaxBet, b.decimals), nil
}

// List returns the cached markets ordered by id
func (b *Book) List() []predictionmarket.Market {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]predictionmarket.Market, 0, len(b.markets))
	for _, m := range b.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id.Cmp(out[j].Id) < 0 })
	return out
}

func (b *Book) LastSync() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.synced
}

func chainError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.ErrTimeout, "market lookup timed out", err)
	}
	return types.WrapError(types.ErrRpcUnavailable, "cannot read markets", err)
}
