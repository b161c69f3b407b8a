// Package relayer takes a signed bet intent from any supported origin chain
// and places it on the destination chain from the relay account.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC/predictionmarket"
	"gobetrelay/addressmap"
	"gobetrelay/config"
	"gobetrelay/estimator"
	"gobetrelay/message"
	"gobetrelay/metrics"
	"gobetrelay/signature"
	"gobetrelay/types"
)

// Backend is the destination chain as seen by the relayer
type Backend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MarketBook returns the inclusive stake bounds of a market in destination units
type MarketBook interface {
	Bounds(ctx context.Context, marketID uint64) (min, max decimal.Decimal, err error)
}

// BridgeVerifier checks the origin-chain payment that funds a non-native bet
type BridgeVerifier interface {
	Verify(ctx context.Context, originChain, originAddress, txHash string, minAmount decimal.Decimal) (types.BridgePayment, error)
}

// ActivityLog is best effort for intents and records. Bridge payment claims
// are the exception: they never expire and a relay needing one fails without it.
// A ttl of zero or less claims permanently.
type ActivityLog interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Record(ctx context.Context, rec *types.RelayRecord) error
}

type Options struct {
	Contract            common.Address
	GasLimitCeiling     uint64
	EstimateTimeout     time.Duration
	SubmitTimeout       time.Duration
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	ReceiptMaxPolls     int
	MaxMessageAge       time.Duration
	MaxClockSkew        time.Duration
	ClaimTTL            time.Duration
	BridgeRequired      bool
}

// OptionsFromConfig reads the relay section of the configuration
func OptionsFromConfig(cfg *config.Configuration) Options {
	return Options{
		Contract:            common.HexToAddress(cfg.Relay.ContractAddress),
		GasLimitCeiling:     cfg.Relay.GasLimitCeiling,
		EstimateTimeout:     cfg.Relay.EstimateTimeout,
		SubmitTimeout:       cfg.Relay.SubmitTimeout,
		ReceiptTimeout:      cfg.Relay.ReceiptTimeout,
		ReceiptPollInterval: cfg.Relay.ReceiptPollInterval,
		ReceiptMaxPolls:     cfg.Relay.ReceiptMaxPolls,
		MaxMessageAge:       cfg.Relay.MaxMessageAge,
		MaxClockSkew:        cfg.Relay.MaxClockSkew,
		ClaimTTL:            cfg.Relay.ClaimTTL,
		BridgeRequired:      cfg.Bridge.Required,
	}
}

type Deps struct {
	Backend   Backend
	Account   *Account
	Registry  *config.Registry
	Verifier  *signature.Verifier
	Mapper    *addressmap.Mapper
	Estimator *estimator.Estimator
	Markets   MarketBook
	Bridge    BridgeVerifier
	Activity  ActivityLog
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type Relayer struct {
	Deps
	opts Options
	now  func() time.Time
}

func New(opts Options, deps Deps) *Relayer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &Relayer{Deps: deps, opts: opts, now: time.Now}
}

// attempt holds the state of one relay
type attempt struct {
	intent types.BetIntent
	proof  types.SignatureProof
	log    *zap.Logger

	res       types.RelayResult
	amount    decimal.Decimal
	callMsg   ethereum.CallMsg
	bridgeKey string
}

func (a *attempt) advance(state types.RelayState) {
	a.res.State = state
	a.log.Debug("relay state", zap.String("state", string(state)))
}

// Relay verifies the intent and places the bet. A Pending result carries the
// transaction hash and no error; any rejection is a *types.RelayError.
func (r *Relayer) Relay(ctx context.Context, intent types.BetIntent, proof types.SignatureProof) (types.RelayResult, error) {
	run := &attempt{
		intent: intent,
		proof:  proof,
		log: r.Logger.With(
			zap.Uint64("market", intent.MarketID),
			zap.String("origin_chain", intent.OriginChain),
			zap.String("origin_address", intent.OriginAddress),
			zap.String("nonce", intent.Nonce)),
	}
	run.advance(types.StateReceived)

	start := time.Now()
	err := r.relay(ctx, run)
	r.Metrics.Observe("total", start)

	if err != nil {
		// a payment stays usable until a transaction spends it
		if run.bridgeKey != "" && run.res.TxHash == "" {
			r.release(run.bridgeKey, run.log)
		}
		run.res.State = types.StateFailed
		r.Metrics.Outcome(string(types.StateFailed), string(types.KindOf(err)))
		run.log.Info("relay rejected", zap.String("kind", string(types.KindOf(err))), zap.Error(err))
		return run.res, err
	}

	r.Metrics.Outcome(string(run.res.State), "")
	run.log.Info("relay finished",
		zap.String("state", string(run.res.State)),
		zap.String("tx", run.res.TxHash),
		zap.Uint64("block", run.res.BlockNumber))
	return run.res, nil
}

func (r *Relayer) relay(ctx context.Context, run *attempt) error {
	if err := r.checkRequest(run); err != nil {
		return err
	}
	if err := r.checkMessage(run); err != nil {
		return err
	}

	if v := r.Verifier.Verify(run.proof); !v.Valid {
		return v.Err
	}
	run.advance(types.StateSignatureVerified)

	if err := r.claimIntent(ctx, run); err != nil {
		return err
	}

	dest, err := r.Mapper.Derive(run.intent.OriginChain, run.intent.OriginAddress)
	if err != nil {
		return err
	}
	run.res.DestinationAddress = dest.Hex()
	run.advance(types.StateAddressResolved)

	if err := r.checkAmount(ctx, run); err != nil {
		return err
	}
	run.advance(types.StateAmountValidated)

	if err := r.checkBridge(ctx, run); err != nil {
		return err
	}

	if err := r.estimate(ctx, run); err != nil {
		return err
	}
	run.advance(types.StateGasEstimated)

	tx, err := r.submit(ctx, run)
	if err != nil {
		return err
	}
	run.res.TxHash = tx.Hash().Hex()
	run.res.Nonce = tx.Nonce()
	run.advance(types.StateSubmitted)
	run.log.Info("bet submitted", zap.String("tx", run.res.TxHash), zap.Uint64("tx_nonce", tx.Nonce()))

	return r.confirm(ctx, run, tx)
}

func (r *Relayer) checkRequest(run *attempt) error {
	in, p := run.intent, run.proof
	if !in.Option.Valid() {
		return types.Errorf(types.ErrInvalidRequest, "option must be 0 or 1, got %d", in.Option)
	}
	if in.OriginAddress == "" || in.Nonce == "" || in.Amount == "" {
		return types.NewError(types.ErrInvalidRequest, "originAddress, amount and nonce are required")
	}
	if _, err := r.Registry.Lookup(in.OriginChain); err != nil {
		return err
	}
	if p.ChainNamespace != in.OriginChain {
		return types.Errorf(types.ErrInvalidRequest, "signature chain %s does not match origin chain %s", p.ChainNamespace, in.OriginChain)
	}
	same := p.ClaimedAddress == in.OriginAddress
	if config.Family(in.OriginChain) == types.FamilyEVM {
		same = strings.EqualFold(p.ClaimedAddress, in.OriginAddress)
	}
	if !same {
		return types.NewError(types.ErrInvalidRequest, "signer does not match origin address")
	}
	return nil
}

// checkMessage binds the signed text to the intent and bounds its age
func (r *Relayer) checkMessage(run *attempt) error {
	f, err := message.Parse(run.proof.Message)
	if err != nil {
		return err
	}
	in := run.intent
	switch {
	case f.MarketID != in.MarketID:
		return types.Errorf(types.ErrMessageMismatch, "message market %d, request market %d", f.MarketID, in.MarketID)
	case f.Option != in.Option:
		return types.Errorf(types.ErrMessageMismatch, "message option %d, request option %d", f.Option, in.Option)
	case f.Amount != in.Amount:
		return types.Errorf(types.ErrMessageMismatch, "message amount %s, request amount %s", f.Amount, in.Amount)
	case f.Nonce != in.Nonce:
		return types.NewError(types.ErrMessageMismatch, "message nonce differs from request nonce")
	case in.Timestamp != 0 && f.Timestamp != in.Timestamp:
		return types.NewError(types.ErrMessageMismatch, "message timestamp differs from request timestamp")
	}
	run.intent.Timestamp = f.Timestamp

	signedAt := time.UnixMilli(f.Timestamp)
	now := r.now()
	if r.opts.MaxMessageAge > 0 && now.Sub(signedAt) > r.opts.MaxMessageAge {
		return types.Errorf(types.ErrStaleMessage, "message signed %s ago", now.Sub(signedAt).Round(time.Second))
	}
	if r.opts.MaxClockSkew > 0 && signedAt.Sub(now) > r.opts.MaxClockSkew {
		return types.NewError(types.ErrStaleMessage, "message timestamp is in the future")
	}
	return nil
}

func IntentKey(in types.BetIntent) string {
	return fmt.Sprintf("intent:%d:%s:%s:%s", in.MarketID, in.OriginChain, normAddress(in.OriginChain, in.OriginAddress), in.Nonce)
}

func BridgeKey(originChain, txHash string) string {
	return fmt.Sprintf("bridge:%s:%s", originChain, strings.ToLower(txHash))
}

func normAddress(chain, address string) string {
	if config.Family(chain) == types.FamilyEVM {
		return strings.ToLower(address)
	}
	return address
}

func (r *Relayer) claimIntent(ctx context.Context, run *attempt) error {
	if r.Activity == nil {
		return nil
	}
	ok, err := r.Activity.Claim(ctx, IntentKey(run.intent), r.opts.ClaimTTL)
	if err != nil {
		run.log.Warn("cannot claim intent, continuing", zap.Error(err))
		return nil
	}
	if !ok {
		return types.NewError(types.ErrDuplicateIntent, "this signed intent was already relayed")
	}
	return nil
}

func (r *Relayer) release(key string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Activity.Release(ctx, key); err != nil {
		log.Warn("cannot release claim", zap.String("key", key), zap.Error(err))
	}
}

func (r *Relayer) checkAmount(ctx context.Context, run *attempt) error {
	dest := r.Estimator.Destination()
	amount, err := estimator.ParseAmount(run.intent.Amount, dest.Decimals)
	if err != nil {
		return err
	}
	min, max, err := r.Markets.Bounds(ctx, run.intent.MarketID)
	if err != nil {
		return err
	}
	if err := estimator.Validate(amount, min, max); err != nil {
		return err
	}
	run.amount = amount
	return nil
}

func (r *Relayer) checkBridge(ctx context.Context, run *attempt) error {
	in := run.intent
	if in.OriginChain == r.Estimator.Destination().Namespace {
		return nil
	}

	quote, err := r.Estimator.Quote(run.amount, in.OriginChain)
	if err != nil {
		return err
	}
	if !r.opts.BridgeRequired {
		return nil
	}
	if r.Bridge == nil {
		return types.NewError(types.ErrBridgePaymentInvalid, "bridge payments cannot be verified")
	}
	if in.BridgeTxHash == "" {
		return types.NewError(types.ErrInvalidRequest, "bridgeId is required for cross-chain bets")
	}

	// spent payments are kept forever, a payment that cannot be marked spent is not used
	if r.Activity == nil {
		return types.NewError(types.ErrStoreUnavailable, "bridge payments cannot be marked spent")
	}
	key := BridgeKey(in.OriginChain, in.BridgeTxHash)
	ok, err := r.Activity.Claim(ctx, key, 0)
	switch {
	case err != nil:
		return types.WrapError(types.ErrStoreUnavailable, "cannot mark bridge payment spent", err)
	case !ok:
		return types.NewError(types.ErrDuplicateIntent, "bridge payment already funded a bet")
	}
	run.bridgeKey = key

	start := time.Now()
	payment, err := r.Bridge.Verify(ctx, in.OriginChain, in.OriginAddress, in.BridgeTxHash, decimal.RequireFromString(quote.OriginAmount))
	r.Metrics.Observe("bridge", start)
	if err != nil {
		return err
	}
	run.log.Info("bridge payment verified", zap.String("bridge_tx", payment.TxHash), zap.String("paid", payment.Amount))
	run.advance(types.StateBridgeVerified)
	return nil
}

func (r *Relayer) estimate(ctx context.Context, run *attempt) error {
	sig, err := signature.Bytes(run.proof.ChainNamespace, run.proof.Signature)
	if err != nil {
		return err
	}
	in := run.intent
	data, err := predictionmarket.PackPlaceCrossChainBet(in.MarketID, uint8(in.Option), in.OriginChain, in.OriginAddress, sig)
	if err != nil {
		return types.WrapError(types.ErrInvalidRequest, "cannot encode bet call", err)
	}

	contract := r.opts.Contract
	run.callMsg = ethereum.CallMsg{
		From:  r.Account.Address(),
		To:    &contract,
		Value: estimator.ToBaseUnits(run.amount, r.Estimator.Destination().Decimals),
		Data:  data,
	}

	ectx, cancel := withTimeout(ctx, r.opts.EstimateTimeout)
	defer cancel()

	start := time.Now()
	gas, err := r.Backend.EstimateGas(ectx, run.callMsg)
	r.Metrics.Observe("estimate", start)
	if err != nil {
		return classify(err, types.ErrEstimationReverted, "gas estimation")
	}

	if gas > r.opts.GasLimitCeiling {
		return types.Errorf(types.ErrEstimationReverted, "gas estimate %d exceeds the ceiling %d", gas, r.opts.GasLimitCeiling)
	}
	limit := gas * 12 / 10
	if limit > r.opts.GasLimitCeiling {
		limit = r.opts.GasLimitCeiling
	}
	run.res.GasLimit = limit
	run.log.Debug("gas estimated", zap.Uint64("estimate", gas), zap.Uint64("limit", limit))
	return nil
}

func (r *Relayer) submit(ctx context.Context, run *attempt) (*ethtypes.Transaction, error) {
	sctx, cancel := withTimeout(ctx, r.opts.SubmitTimeout)
	defer cancel()

	start := time.Now()
	defer r.Metrics.Observe("submit", start)

	gasPrice, err := r.Backend.SuggestGasPrice(sctx)
	if err != nil {
		return nil, classify(err, types.ErrRpcUnavailable, "gas price lookup")
	}

	msg := run.callMsg
	tx, err := r.Account.Submit(sctx, r.Backend, func(nonce uint64) *ethtypes.Transaction {
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      run.res.GasLimit,
			To:       msg.To,
			Value:    msg.Value,
			Data:     msg.Data,
		})
	})
	if err != nil {
		return nil, classify(err, types.ErrRpcUnavailable, "broadcast")
	}
	if next, ok := r.Account.Nonce(); ok {
		r.Metrics.AccountNonce.Set(float64(next))
	}
	return tx, nil
}

func (r *Relayer) confirm(ctx context.Context, run *attempt, tx *ethtypes.Transaction) error {
	start := time.Now()
	receipt, err := WaitReceipt(ctx, r.Backend, tx.Hash(), r.opts.ReceiptPollInterval, r.opts.ReceiptMaxPolls, r.opts.ReceiptTimeout)
	r.Metrics.Observe("receipt", start)

	if err != nil {
		run.log.Warn("no receipt yet, leaving relay pending", zap.Error(err))
		run.res.State = types.StatePending
		r.record(run, "pending", "waiting for receipt")
		return nil
	}

	run.res.BlockNumber = receipt.BlockNumber.Uint64()
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		reason := r.ReplayRevert(ctx, run.callMsg, receipt.BlockNumber)
		run.res.State = types.StateFailed
		r.record(run, "failed", reason)
		return types.NewError(types.ErrExecutionReverted, reason)
	}

	run.res.State = types.StateConfirmed
	r.record(run, "confirmed", "")
	return nil
}

// ReplayRevert re-executes a reverted call at its block to recover the reason
func (r *Relayer) ReplayRevert(ctx context.Context, msg ethereum.CallMsg, block *big.Int) string {
	cctx, cancel := withTimeout(ctx, r.opts.EstimateTimeout)
	defer cancel()
	_, err := r.Backend.CallContract(cctx, msg, block)
	if err == nil {
		return "execution reverted"
	}
	return revertReason(err)
}

// WaitReceipt polls for a receipt at most maxPolls times within timeout
func WaitReceipt(ctx context.Context, backend Backend, hash common.Hash, interval time.Duration, maxPolls int, timeout time.Duration) (*ethtypes.Receipt, error) {
	wctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	var lastErr error = ethereum.NotFound
	for i := 0; i < maxPolls; i++ {
		receipt, err := backend.TransactionReceipt(wctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}
		if i == maxPolls-1 {
			break
		}
		select {
		case <-wctx.Done():
			return nil, wctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, lastErr
}

func (r *Relayer) record(run *attempt, status, note string) {
	if r.Activity == nil {
		return
	}
	in := run.intent
	rec := &types.RelayRecord{
		Status:             status,
		MarketID:           in.MarketID,
		Option:             in.Option,
		Amount:             in.Amount,
		DestinationAddress: run.res.DestinationAddress,
		OriginChain:        in.OriginChain,
		OriginAddress:      in.OriginAddress,
		Nonce:              in.Nonce,
		BridgeTxHash:       in.BridgeTxHash,
		TxHash:             run.res.TxHash,
		BlockNumber:        run.res.BlockNumber,
		Message:            note,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Activity.Record(ctx, rec); err != nil {
		run.log.Warn("cannot record relay", zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
