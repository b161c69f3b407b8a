// Package estimator converts requested stakes into origin-chain payments and
// enforces the stake and bridge bounds.
package estimator

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"

	"gobetrelay/config"
	"gobetrelay/types"
)

var amountRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var bpsDivisor = decimal.NewFromInt(10000)

type Estimator struct {
	registry     *config.Registry
	destination  config.ChainConfig
	bridgeFeeBps int64
	nativeFee    decimal.Decimal
}

func NewEstimator(registry *config.Registry, destinationChain string, bridgeFeeBps int64, nativeFee string) (*Estimator, error) {
	dest, err := registry.Lookup(destinationChain)
	if err != nil {
		return nil, err
	}
	fee, err := decimal.NewFromString(nativeFee)
	if err != nil {
		return nil, fmt.Errorf("bad native fee %q: %w", nativeFee, err)
	}
	if bridgeFeeBps < 0 {
		return nil, fmt.Errorf("bridge fee bps must not be negative, got %d", bridgeFeeBps)
	}
	return &Estimator{
		registry:     registry,
		destination:  dest,
		bridgeFeeBps: bridgeFeeBps,
		nativeFee:    fee,
	}, nil
}

// ParseAmount accepts a positive plain decimal with at most `decimals` fractional digits
func ParseAmount(s string, decimals int32) (decimal.Decimal, error) {
	if !amountRe.MatchString(s) {
		return decimal.Zero, types.Errorf(types.ErrInvalidRequest, "amount %q is not a decimal number", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, types.WrapError(types.ErrInvalidRequest, "cannot parse amount", err)
	}
	if !d.IsPositive() {
		return decimal.Zero, types.NewError(types.ErrInvalidRequest, "amount must be positive")
	}
	if !d.Equal(d.Truncate(decimals)) {
		return decimal.Zero, types.Errorf(types.ErrInvalidRequest, "amount %s has more than %d decimals", s, decimals)
	}
	return d, nil
}

// ToBaseUnits converts a decimal amount into integer base units (wei, lamports)
func ToBaseUnits(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).Truncate(0).BigInt()
}

func FromBaseUnits(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, -decimals)
}

// Validate checks marketMin <= amount <= marketMax, both bounds inclusive
func Validate(amount, marketMin, marketMax decimal.Decimal) error {
	if amount.LessThan(marketMin) || amount.GreaterThan(marketMax) {
		return types.Errorf(types.ErrBetAmountOutOfRange, "bet amount %s is outside [%s, %s]", amount, marketMin, marketMax)
	}
	return nil
}

func (e *Estimator) Destination() config.ChainConfig {
	return e.destination
}

// Quote computes what the user pays on originChain for destinationAmount.
// The rate is read from the registry on every call. A quote below the
// chain's minimum bridge amount is returned together with BridgeAmountTooSmall.
func (e *Estimator) Quote(destinationAmount decimal.Decimal, originChain string) (types.BridgeQuote, error) {
	origin, err := e.registry.Lookup(originChain)
	if err != nil {
		return types.BridgeQuote{}, err
	}

	q := types.BridgeQuote{
		DestinationAmount: destinationAmount.String(),
		OriginCurrency:    origin.Currency,
		FeeCurrency:       origin.Currency,
	}

	if originChain == e.destination.Namespace {
		q.Native = true
		q.OriginAmount = destinationAmount.String()
		q.Rate = "1"
		q.MinBridgeAmount = "0"
		q.Fee = e.nativeFee.String()
		return q, nil
	}

	rate, err := decimal.NewFromString(origin.Rate)
	if err != nil || !rate.IsPositive() {
		return types.BridgeQuote{}, fmt.Errorf("chain %s has an invalid rate %q", originChain, origin.Rate)
	}
	minBridge := decimal.Zero
	if origin.MinBridgeAmount != "" {
		if minBridge, err = decimal.NewFromString(origin.MinBridgeAmount); err != nil {
			return types.BridgeQuote{}, fmt.Errorf("chain %s has an invalid minimum bridge amount: %w", originChain, err)
		}
	}
	fixedFee := decimal.Zero
	if origin.FixedFee != "" {
		if fixedFee, err = decimal.NewFromString(origin.FixedFee); err != nil {
			return types.BridgeQuote{}, fmt.Errorf("chain %s has an invalid fixed fee: %w", originChain, err)
		}
	}

	// round up so the payment never falls short of the stake
	originAmount := destinationAmount.DivRound(rate, origin.Decimals+6).RoundCeil(origin.Decimals)
	fee := originAmount.Mul(decimal.NewFromInt(e.bridgeFeeBps)).Div(bpsDivisor).Add(fixedFee).RoundCeil(origin.Decimals)

	q.OriginAmount = originAmount.String()
	q.Rate = rate.String()
	q.MinBridgeAmount = minBridge.String()
	q.Fee = fee.String()

	if originAmount.LessThan(minBridge) {
		return q, types.Errorf(types.ErrBridgeAmountTooSmall, "bridged amount %s %s is below the minimum %s", originAmount, origin.Currency, minBridge)
	}
	return q, nil
}
