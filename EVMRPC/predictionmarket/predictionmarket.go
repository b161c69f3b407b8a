// Package predictionmarket is a minimal binding of the prediction market
// contract: the cross-chain bet entry point and the market getters.
package predictionmarket

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const marketTuple = `{"name":"","type":"tuple","components":[
	{"name":"id","type":"uint256"},
	{"name":"title","type":"string"},
	{"name":"description","type":"string"},
	{"name":"optionA","type":"string"},
	{"name":"optionB","type":"string"},
	{"name":"category","type":"uint8"},
	{"name":"creator","type":"address"},
	{"name":"createdAt","type":"uint256"},
	{"name":"endTime","type":"uint256"},
	{"name":"minBet","type":"uint256"},
	{"name":"maxBet","type":"uint256"},
	{"name":"status","type":"uint8"},
	{"name":"outcome","type":"uint8"},
	{"name":"resolved","type":"bool"},
	{"name":"totalOptionAShares","type":"uint256"},
	{"name":"totalOptionBShares","type":"uint256"},
	{"name":"totalPool","type":"uint256"},
	{"name":"imageUrl","type":"string"}]}`

var ABI = `[
{"type":"function","name":"placeCrossChainBet","stateMutability":"payable","inputs":[
	{"name":"marketId","type":"uint256"},
	{"name":"option","type":"uint8"},
	{"name":"originChain","type":"string"},
	{"name":"originAddress","type":"string"},
	{"name":"signature","type":"bytes"}],"outputs":[]},
{"type":"function","name":"getMarket","stateMutability":"view","inputs":[
	{"name":"marketId","type":"uint256"}],"outputs":[` + marketTuple + `]},
{"type":"function","name":"getAllMarkets","stateMutability":"view","inputs":[],"outputs":[` +
	strings.Replace(marketTuple, `"type":"tuple"`, `"type":"tuple[]"`, 1) + `]}
]`

// market status as stored on chain
const (
	StatusActive   uint8 = 0
	StatusPaused   uint8 = 1
	StatusResolved uint8 = 2
)

// Market mirrors the contract's Market struct, field order included
type Market struct {
	Id                 *big.Int
	Title              string
	Description        string
	OptionA            string
	OptionB            string
	Category           uint8
	Creator            common.Address
	CreatedAt          *big.Int
	EndTime            *big.Int
	MinBet             *big.Int
	MaxBet             *big.Int
	Status             uint8
	Outcome            uint8
	Resolved           bool
	TotalOptionAShares *big.Int
	TotalOptionBShares *big.Int
	TotalPool          *big.Int
	ImageUrl           string
}

// unset markets read back as the zero struct
func (m Market) Exists() bool {
	return m.Id != nil && m.Id.Sign() > 0
}

func (m Market) Active() bool {
	return m.Status == StatusActive && !m.Resolved
}

var parsed abi.ABI

func init() {
	var err error
	parsed, err = abi.JSON(strings.NewReader(ABI))
	if err != nil {
		panic(fmt.Sprintf("prediction market abi: %s", err))
	}
}

func Parsed() abi.ABI {
	return parsed
}

type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func PackPlaceCrossChainBet(marketID uint64, option uint8, originChain, originAddress string, signature []byte) ([]byte, error) {
	return parsed.Pack("placeCrossChainBet", new(big.Int).SetUint64(marketID), option, originChain, originAddress, signature)
}

func GetMarket(ctx context.Context, caller Caller, contract common.Address, marketID uint64) (Market, error) {
	data, err := parsed.Pack("getMarket", new(big.Int).SetUint64(marketID))
	if err != nil {
		return Market{}, err
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return Market{}, err
	}
	return UnpackMarket(out)
}

func UnpackMarket(out []byte) (Market, error) {
	values, err := parsed.Unpack("getMarket", out)
	if err != nil {
		return Market{}, fmt.Errorf("cannot decode getMarket: %w", err)
	}
	if len(values) != 1 {
		return Market{}, fmt.Errorf("getMarket returned %d values", len(values))
	}
	return *abi.ConvertType(values[0], new(Market)).(*Market), nil
}

func GetAllMarkets(ctx context.Context, caller Caller, contract common.Address) ([]Market, error) {
	data, err := parsed.Pack("getAllMarkets")
	if err != nil {
		return nil, err
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack("getAllMarkets", out)
	if err != nil {
		return nil, fmt.Errorf("cannot decode getAllMarkets: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("getAllMarkets returned %d values", len(values))
	}
	return *abi.ConvertType(values[0], new([]Market)).(*[]Market), nil
}
