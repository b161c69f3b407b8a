package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC/predictionmarket"
	"gobetrelay/addressmap"
	"gobetrelay/config"
	"gobetrelay/estimator"
	"gobetrelay/message"
	"gobetrelay/signature"
	"gobetrelay/types"
)

const (
	push    = "eip155:42101"
	sepolia = "eip155:11155111"
)

type fakeRelayer struct {
	res    types.RelayResult
	err    error
	intent types.BetIntent
	proof  types.SignatureProof
	calls  int
}

func (f *fakeRelayer) Relay(ctx context.Context, intent types.BetIntent, proof types.SignatureProof) (types.RelayResult, error) {
	f.calls++
	f.intent, f.proof = intent, proof
	return f.res, f.err
}

type fakeStore struct {
	pingErr error
	book    map[string]*types.AddressBookRecord
	upserts int
	relays  []*types.RelayRecord
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) FindAllByStatus(ctx context.Context, status string) ([]*types.RelayRecord, error) {
	var out []*types.RelayRecord
	for _, r := range s.relays {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetAddressBookRecord(ctx context.Context, originChain, originAddress string, version int) (*types.AddressBookRecord, error) {
	return s.book[originChain+"/"+originAddress], nil
}

func (s *fakeStore) UpsertAddressBookRecord(ctx context.Context, rec *types.AddressBookRecord) error {
	s.upserts++
	s.book[rec.OriginChain+"/"+rec.OriginAddress] = rec
	return nil
}

type fakeChain struct {
	balance *big.Int
	err     error
}

func (c *fakeChain) BlockNumber(ctx context.Context) (uint64, error) { return 100, c.err }

func (c *fakeChain) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.balance, c.err
}

type fakeBridge struct {
	err error
}

func (b *fakeBridge) Verify(ctx context.Context, originChain, originAddress, txHash string, minAmount decimal.Decimal) (types.BridgePayment, error) {
	if b.err != nil {
		return types.BridgePayment{}, b.err
	}
	return types.BridgePayment{TxHash: txHash, From: originAddress, Amount: minAmount.String(), BlockNumber: 7}, nil
}

type fakeMarkets []predictionmarket.Market

func (m fakeMarkets) List() []predictionmarket.Market { return m }

func newAPI(t *testing.T) (*API, *fakeRelayer, *fakeStore) {
	t.Helper()
	registry := config.NewRegistry(push, nil)
	est, err := estimator.NewEstimator(registry, push, 30, "0.001")
	require.NoError(t, err)

	relayer := &fakeRelayer{}
	store := &fakeStore{book: map[string]*types.AddressBookRecord{}}
	return &API{
		Relayer:      relayer,
		Verifier:     signature.NewVerifier(zap.NewNop()),
		Mapper:       addressmap.NewMapper(push),
		Estimator:    est,
		Registry:     registry,
		Bridge:       &fakeBridge{},
		Store:        store,
		Chain:        &fakeChain{balance: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17))},
		Markets:      fakeMarkets{},
		RelayAddress: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Logger:       zap.NewNop(),
	}, relayer, store
}

func do(h http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func betRequest() PlaceBetRequest {
	return PlaceBetRequest{
		MarketID:      5,
		Option:        1,
		Amount:        "0.5",
		OriginChain:   sepolia,
		OriginAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Signature:     "0x01",
		Message:       "msg",
		Nonce:         "n-1",
		Timestamp:     1700000000000,
		BridgeID:      "0xabc",
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[types.ErrorKind]int{
		types.ErrInvalidSignature:     http.StatusBadRequest,
		types.ErrBetAmountOutOfRange:  http.StatusBadRequest,
		types.ErrUnsupportedChain:     http.StatusBadRequest,
		types.ErrBridgePaymentInvalid: http.StatusPaymentRequired,
		types.ErrBridgePaymentPending: http.StatusPaymentRequired,
		types.ErrDuplicateIntent:      http.StatusConflict,
		types.ErrEstimationReverted:   http.StatusUnprocessableEntity,
		types.ErrExecutionReverted:    http.StatusUnprocessableEntity,
		types.ErrRpcUnavailable:       http.StatusServiceUnavailable,
		types.ErrStoreUnavailable:     http.StatusServiceUnavailable,
		types.ErrTimeout:              http.StatusGatewayTimeout,
		"":                            http.StatusInternalServerError,
	}
	for kind, code := range cases {
		assert.Equal(t, code, StatusFor(kind), string(kind))
	}
}

func TestPlaceBetConfirmed(t *testing.T) {
	api, relayer, _ := newAPI(t)
	relayer.res = types.RelayResult{
		State:              types.StateConfirmed,
		TxHash:             "0xfeed",
		BlockNumber:        1234,
		DestinationAddress: "0x00000000000000000000000000000000000000bb",
		GasLimit:           120000,
	}

	rec := do(api.PlaceBet, http.MethodPost, "/universal/place-bet", betRequest())
	require.Equal(t, http.StatusOK, rec.Code)

	var out PlaceBetResponse
	decode(t, rec, &out)
	assert.True(t, out.Success)
	assert.Equal(t, "confirmed", out.Status)
	assert.Equal(t, "0xfeed", out.TxHash)
	assert.Equal(t, uint64(120000), out.GasLimit)
	assert.Equal(t, "https://donut.push.network/tx/0xfeed", out.Explorer)

	assert.Equal(t, types.OptionB, relayer.intent.Option)
	assert.Equal(t, "0xabc", relayer.intent.BridgeTxHash)
	assert.Equal(t, sepolia, relayer.proof.ChainNamespace)
	assert.Equal(t, relayer.intent.OriginAddress, relayer.proof.ClaimedAddress)
}

func TestPlaceBetPending(t *testing.T) {
	api, relayer, _ := newAPI(t)
	relayer.res = types.RelayResult{State: types.StatePending, TxHash: "0xfeed"}

	rec := do(api.PlaceBet, http.MethodPost, "/universal/place-bet", betRequest())
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestPlaceBetRelayErrors(t *testing.T) {
	api, relayer, _ := newAPI(t)

	relayer.err = types.NewError(types.ErrBetAmountOutOfRange, "amount 20 is outside [0.01, 10]")
	rec := do(api.PlaceBet, http.MethodPost, "/universal/place-bet", betRequest())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out APIResponse
	decode(t, rec, &out)
	assert.False(t, out.Success)
	assert.Equal(t, "BetAmountOutOfRange", out.ErrorKind)
	assert.Equal(t, "amount", out.Field)
	assert.Contains(t, out.Error, "outside")

	relayer.err = errors.New("boom: secret detail")
	rec = do(api.PlaceBet, http.MethodPost, "/universal/place-bet", betRequest())
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out = APIResponse{}
	decode(t, rec, &out)
	assert.Equal(t, "internal error", out.Error)
}

func TestPlaceBetRejectsBadInput(t *testing.T) {
	api, relayer, _ := newAPI(t)

	req := betRequest()
	req.OriginAddress = "0x1234"
	rec := do(api.PlaceBet, http.MethodPost, "/universal/place-bet", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out APIResponse
	decode(t, rec, &out)
	assert.Equal(t, "originAddress", out.Field)

	req = betRequest()
	req.Nonce = ""
	rec = do(api.PlaceBet, http.MethodPost, "/universal/place-bet", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	api.PlaceBet(rec, httptest.NewRequest(http.MethodPost, "/universal/place-bet", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, relayer.calls)
}

func TestVerifySignature(t *testing.T) {
	api, _, _ := newAPI(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	msg := message.Build(types.ActionPlaceBet, 5, types.OptionA, "1", "n-1", 1700000000000)
	sig, err := signature.SignEVM(msg, key)
	require.NoError(t, err)

	req := VerifySignatureRequest{Message: msg, Signature: hexutil.Encode(sig), OriginChain: sepolia, OriginAddress: addr}
	rec := do(api.VerifySignature, http.MethodPost, "/universal/verify-signature", req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out VerifySignatureResponse
	decode(t, rec, &out)
	assert.True(t, out.IsValid)
	assert.Equal(t, addr, out.RecoveredAddress)

	req.Message += " "
	rec = do(api.VerifySignature, http.MethodPost, "/universal/verify-signature", req)
	out = VerifySignatureResponse{}
	decode(t, rec, &out)
	assert.False(t, out.IsValid)
	assert.Equal(t, "InvalidSignature", out.ErrorKind)

	req.OriginChain = "eip155:1"
	rec = do(api.VerifySignature, http.MethodPost, "/universal/verify-signature", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupportedChains(t *testing.T) {
	api, _, _ := newAPI(t)
	rec := do(api.SupportedChains, http.MethodGet, "/universal/supported-chains", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ChainResponse
	decode(t, rec, &out)
	require.NotEmpty(t, out)
	assert.Equal(t, push, out[0].Namespace)
	assert.True(t, out[0].Native)
}

func TestQuote(t *testing.T) {
	api, _, _ := newAPI(t)

	rec := do(api.Quote, http.MethodGet, "/universal/quote?originChain="+sepolia+"&amount=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q types.BridgeQuote
	decode(t, rec, &q)
	assert.Equal(t, "ETH", q.OriginCurrency)
	assert.False(t, q.Native)

	rec = do(api.Quote, http.MethodGet, "/universal/quote?originChain="+sepolia+"&amount=0.01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var tooSmall struct {
		ErrorKind string            `json:"errorKind"`
		Quote     types.BridgeQuote `json:"quote"`
	}
	decode(t, rec, &tooSmall)
	assert.Equal(t, "BridgeAmountTooSmall", tooSmall.ErrorKind)
	assert.NotEmpty(t, tooSmall.Quote.OriginAmount)

	rec = do(api.Quote, http.MethodGet, "/universal/quote?originChain="+sepolia+"&amount=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddressUsesAddressBook(t *testing.T) {
	api, _, store := newAPI(t)
	origin := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	want, err := addressmap.Derive(sepolia, origin)
	require.NoError(t, err)

	rec := do(api.Address, http.MethodGet, "/universal/address?originChain="+sepolia+"&originAddress="+origin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out AddressResponse
	decode(t, rec, &out)
	assert.Equal(t, want.Hex(), out.DestinationAddress)
	assert.False(t, out.Native)
	assert.Equal(t, 1, store.upserts)

	rec = do(api.Address, http.MethodGet, "/universal/address?originChain="+sepolia+"&originAddress="+origin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.upserts)
}

func TestAddressNativeIsIdentity(t *testing.T) {
	api, _, store := newAPI(t)
	origin := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	rec := do(api.Address, http.MethodGet, "/universal/address?originChain="+push+"&originAddress="+origin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out AddressResponse
	decode(t, rec, &out)
	assert.True(t, out.Native)
	assert.Equal(t, common.HexToAddress(origin).Hex(), out.DestinationAddress)
	assert.Equal(t, 0, store.upserts)
}

func TestBridgeVerify(t *testing.T) {
	api, _, _ := newAPI(t)
	req := BridgeVerifyRequest{BridgeID: "0xabc", OriginChain: sepolia, UserAddress: "0x01", Amount: "0.002"}

	rec := do(api.BridgeVerify, http.MethodPost, "/bridge/verify", req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out BridgeVerifyResponse
	decode(t, rec, &out)
	assert.True(t, out.Verified)
	assert.Equal(t, uint64(7), out.BlockNumber)

	api.Bridge = &fakeBridge{err: types.NewError(types.ErrBridgePaymentPending, "not mined yet")}
	rec = do(api.BridgeVerify, http.MethodPost, "/bridge/verify", req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	req.Amount = "-1"
	rec = do(api.BridgeVerify, http.MethodPost, "/bridge/verify", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalance(t *testing.T) {
	api, _, _ := newAPI(t)

	rec := do(api.Balance, http.MethodGet, "/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out BalanceResponse
	decode(t, rec, &out)
	assert.Equal(t, "1.5", out.Balance)
	assert.Equal(t, "PC", out.Currency)

	rec = do(api.BalancePlain, http.MethodGet, "/balance/plain", nil)
	assert.Equal(t, "1", rec.Body.String())

	api.Chain = &fakeChain{err: errors.New("dial tcp: refused")}
	rec = do(api.Balance, http.MethodGet, "/balance", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	api, _, store := newAPI(t)
	rec := do(api.HealthCheck, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	store.pingErr = errors.New("connection refused")
	rec = do(api.HealthCheck, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListMarkets(t *testing.T) {
	api, _, _ := newAPI(t)
	api.Markets = fakeMarkets{{
		Id:      big.NewInt(5),
		Title:   "Will it rain?",
		OptionA: "Yes",
		OptionB: "No",
		EndTime: big.NewInt(1700003600),
		MinBet:  big.NewInt(1e16),
		MaxBet:  new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
	}}

	rec := do(api.ListMarkets, http.MethodGet, "/markets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []MarketResponse
	decode(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(5), out[0].ID)
	assert.Equal(t, "0.01", out[0].MinBet)
	assert.Equal(t, "10", out[0].MaxBet)
}

func TestGetRelaysByStatus(t *testing.T) {
	api, _, store := newAPI(t)
	store.relays = []*types.RelayRecord{{ID: "a", Status: "pending"}, {ID: "b", Status: "confirmed"}}

	r := chi.NewRouter()
	r.Get("/stats/{status}", api.GetRelaysByStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out []*types.RelayRecord
	decode(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/everything", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddressRejectsMalformedOrigin(t *testing.T) {
	api, _, store := newAPI(t)

	for _, target := range []string{
		"/universal/address?originChain=" + sepolia + "&originAddress=not-an-address",
		"/universal/address?originChain=" + sepolia + "&originAddress=0x1234",
		"/universal/address?originChain=solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1&originAddress=0OIl",
	} {
		rec := do(api.Address, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		var out APIResponse
		decode(t, rec, &out)
		assert.Equal(t, "originAddress", out.Field, target)
	}
	assert.Zero(t, store.upserts)
	assert.Empty(t, store.book)
}
