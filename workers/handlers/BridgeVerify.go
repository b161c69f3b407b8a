package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (a *API) BridgeVerify(w http.ResponseWriter, r *http.Request) {
	var req BridgeVerifyRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	if req.BridgeID == "" {
		a.badRequest(w, "bridgeId", "bridgeId is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		a.badRequest(w, "amount", "amount must be a positive decimal")
		return
	}

	payment, err := a.Bridge.Verify(r.Context(), req.OriginChain, req.UserAddress, req.BridgeID, amount)
	if err != nil {
		a.responseError(w, err)
		return
	}
	responseJSON(w, &BridgeVerifyResponse{
		Success:     true,
		Verified:    true,
		TxHash:      payment.TxHash,
		BlockNumber: payment.BlockNumber,
		Amount:      payment.Amount,
	}, http.StatusOK)
}
