package handlers

import (
	"encoding/json"
	"net/http"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"gobetrelay/config"
	"gobetrelay/types"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responsePlain(w http.ResponseWriter, data []byte, code int) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	w.Write(data)
}

// StatusFor maps an error kind onto the HTTP status returned to clients
func StatusFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrBridgePaymentInvalid, types.ErrBridgePaymentPending:
		return http.StatusPaymentRequired
	case types.ErrDuplicateIntent:
		return http.StatusConflict
	case types.ErrEstimationReverted, types.ErrExecutionReverted:
		return http.StatusUnprocessableEntity
	case types.ErrRpcUnavailable, types.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrTimeout:
		return http.StatusGatewayTimeout
	case "":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func fieldFor(kind types.ErrorKind) string {
	switch kind {
	case types.ErrMalformedSignature, types.ErrInvalidSignature:
		return "signature"
	case types.ErrMessageMismatch, types.ErrStaleMessage:
		return "message"
	case types.ErrBetAmountOutOfRange, types.ErrBridgeAmountTooSmall:
		return "amount"
	case types.ErrUnsupportedChain, types.ErrUnsupportedChainFamily:
		return "originChain"
	case types.ErrBridgePaymentInvalid, types.ErrBridgePaymentPending:
		return "bridgeId"
	case types.ErrDuplicateIntent:
		return "nonce"
	}
	return ""
}

func (a *API) responseError(w http.ResponseWriter, err error) {
	kind := types.KindOf(err)
	res := &APIResponse{
		Status:    "error",
		Error:     types.ReasonOf(err),
		ErrorKind: string(kind),
		Field:     fieldFor(kind),
	}
	if kind == "" {
		// unclassified errors are internal, keep details in the log
		a.Logger.Error("unexpected error", zap.Error(err))
		res.Error = "internal error"
	}
	responseJSON(w, res, StatusFor(kind))
}

func (a *API) badRequest(w http.ResponseWriter, field, msg string) {
	responseJSON(w, &APIResponse{
		Status:    "error",
		Error:     msg,
		ErrorKind: string(types.ErrInvalidRequest),
		Field:     field,
	}, http.StatusBadRequest)
}

func (a *API) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.Logger.Debug("cannot decode request body", zap.Error(err))
		a.badRequest(w, "", "Cannot unmarshal input JSON")
		return false
	}
	return true
}

// validOriginAddress rejects origin addresses that are not well formed for their chain family
func (a *API) validOriginAddress(w http.ResponseWriter, originChain, originAddress string) bool {
	switch config.Family(originChain) {
	case types.FamilyEVM:
		if !common.IsHexAddress(originAddress) {
			a.badRequest(w, "originAddress", "No ethereum address or invalid address provided")
			return false
		}
		if err := ethav.Validate(common.HexToAddress(originAddress).Hex()); err != nil {
			a.Logger.Debug("origin address rejected", zap.String("address", originAddress), zap.Error(err))
			a.badRequest(w, "originAddress", "No ethereum address or invalid address provided")
			return false
		}
	case types.FamilySolana:
		if _, err := solana.PublicKeyFromBase58(originAddress); err != nil {
			a.badRequest(w, "originAddress", "No solana public key or invalid public key provided")
			return false
		}
	}
	return true
}
