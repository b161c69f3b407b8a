package predictionmarket

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	lastData []byte
	out      []byte
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.lastData = msg.Data
	return f.out, nil
}

func sampleMarket(id int64) Market {
	return Market{
		Id:                 big.NewInt(id),
		Title:              "Will it rain tomorrow?",
		OptionA:            "Yes",
		OptionB:            "No",
		Creator:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
		CreatedAt:          big.NewInt(1700000000),
		EndTime:            big.NewInt(1800000000),
		MinBet:             big.NewInt(1e16),
		MaxBet:             new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
		TotalOptionAShares: big.NewInt(0),
		TotalOptionBShares: big.NewInt(0),
		TotalPool:          big.NewInt(0),
		ImageUrl:           "https://example.org/rain.png",
	}
}

func TestGetMarketDecodes(t *testing.T) {
	out, err := parsed.Methods["getMarket"].Outputs.Pack(sampleMarket(7))
	require.NoError(t, err)

	caller := &fakeCaller{out: out}
	m, err := GetMarket(context.Background(), caller, common.Address{}, 7)
	require.NoError(t, err)

	assert.Equal(t, parsed.Methods["getMarket"].ID, caller.lastData[:4])
	assert.True(t, m.Exists())
	assert.True(t, m.Active())
	assert.Equal(t, "Will it rain tomorrow?", m.Title)
	assert.Equal(t, int64(1e16), m.MinBet.Int64())
	assert.Equal(t, "https://example.org/rain.png", m.ImageUrl)
}

func TestGetMarketMissing(t *testing.T) {
	empty := sampleMarket(0)
	empty.Title, empty.OptionA, empty.OptionB, empty.ImageUrl = "", "", "", ""
	out, err := parsed.Methods["getMarket"].Outputs.Pack(empty)
	require.NoError(t, err)

	m, err := GetMarket(context.Background(), &fakeCaller{out: out}, common.Address{}, 99)
	require.NoError(t, err)
	assert.False(t, m.Exists())
}

func TestGetAllMarkets(t *testing.T) {
	resolved := sampleMarket(2)
	resolved.Status = StatusResolved
	resolved.Resolved = true

	out, err := parsed.Methods["getAllMarkets"].Outputs.Pack([]Market{sampleMarket(1), resolved})
	require.NoError(t, err)

	markets, err := GetAllMarkets(context.Background(), &fakeCaller{out: out}, common.Address{})
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.True(t, markets[0].Active())
	assert.False(t, markets[1].Active())
}

func TestPackPlaceCrossChainBet(t *testing.T) {
	data, err := PackPlaceCrossChainBet(3, 1, "eip155:11155111", "0xabc", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, parsed.Methods["placeCrossChainBet"].ID, data[:4])

	args, err := parsed.Methods["placeCrossChainBet"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), args[0])
	assert.Equal(t, uint8(1), args[1])
	assert.Equal(t, "eip155:11155111", args[2])
	assert.Equal(t, "0xabc", args[3])
	assert.Equal(t, []byte{1, 2, 3}, args[4])
}
