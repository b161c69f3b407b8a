package markets

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC/predictionmarket"
	"gobetrelay/metrics"
	"gobetrelay/types"
)

func market(id int64, minWei, maxWei *big.Int) predictionmarket.Market {
	return predictionmarket.Market{
		Id:                 big.NewInt(id),
		Title:              "m",
		CreatedAt:          big.NewInt(0),
		EndTime:            big.NewInt(0),
		MinBet:             minWei,
		MaxBet:             maxWei,
		TotalOptionAShares: big.NewInt(0),
		TotalOptionBShares: big.NewInt(0),
		TotalPool:          big.NewInt(0),
	}
}

type fakeContract struct {
	markets map[uint64]predictionmarket.Market
	calls   int
	err     error
}

func (f *fakeContract) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	abi := predictionmarket.Parsed()
	getAll := abi.Methods["getAllMarkets"]
	if bytes.Equal(msg.Data[:4], getAll.ID) {
		all := make([]predictionmarket.Market, 0, len(f.markets))
		for _, m := range f.markets {
			all = append(all, m)
		}
		return getAll.Outputs.Pack(all)
	}

	get := abi.Methods["getMarket"]
	args, err := get.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	m, ok := f.markets[args[0].(*big.Int).Uint64()]
	if !ok {
		m = market(0, big.NewInt(0), big.NewInt(0))
	}
	return get.Outputs.Pack(m)
}

var (
	centiEther = big.NewInt(1e16)
	tenEther   = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
)

func newBook(c *fakeContract) (*Book, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewBook(c, common.Address{}, 18, m, zap.NewNop()), m
}

func TestBoundsLoadsOnMissThenCaches(t *testing.T) {
	c := &fakeContract{markets: map[uint64]predictionmarket.Market{5: market(5, centiEther, tenEther)}}
	b, _ := newBook(c)

	min, max, err := b.Bounds(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "0.01", min.String())
	assert.Equal(t, "10", max.String())

	_, _, err = b.Bounds(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)
}

func TestBoundsUnknownMarket(t *testing.T) {
	b, _ := newBook(&fakeContract{markets: map[uint64]predictionmarket.Market{}})
	_, _, err := b.Bounds(context.Background(), 42)
	assert.Equal(t, types.ErrInvalidRequest, types.KindOf(err))
}

func TestBoundsChainDown(t *testing.T) {
	b, _ := newBook(&fakeContract{err: errors.New("connection refused")})
	_, _, err := b.Bounds(context.Background(), 5)
	assert.Equal(t, types.ErrRpcUnavailable, types.KindOf(err))
}

func TestSync(t *testing.T) {
	c := &fakeContract{markets: map[uint64]predictionmarket.Market{
		1: market(1, centiEther, tenEther),
		2: market(2, centiEther, tenEther),
	}}
	b, m := newBook(c)

	n, err := b.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, b.LastSync().IsZero())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Markets))

	list := b.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].Id.Int64())

	calls := c.calls
	_, _, err = b.Bounds(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, calls, c.calls)
}
