package handlers

import (
	"net/http"
	"strings"

	"gobetrelay/types"
)

func (a *API) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if !a.readJSON(w, r, &req) {
		return
	}

	if req.OriginChain == "" {
		a.badRequest(w, "originChain", "originChain is required")
		return
	}
	if req.Signature == "" || req.Message == "" {
		a.badRequest(w, "signature", "signature and message are required")
		return
	}
	if req.Nonce == "" {
		a.badRequest(w, "nonce", "nonce is required")
		return
	}
	if !a.validOriginAddress(w, req.OriginChain, req.OriginAddress) {
		return
	}

	intent := types.BetIntent{
		MarketID:      req.MarketID,
		Option:        types.Option(req.Option),
		Amount:        strings.TrimSpace(req.Amount),
		OriginChain:   req.OriginChain,
		OriginAddress: req.OriginAddress,
		Nonce:         req.Nonce,
		Timestamp:     req.Timestamp,
		BridgeTxHash:  req.BridgeID,
	}
	proof := types.SignatureProof{
		Message:        req.Message,
		Signature:      req.Signature,
		ChainNamespace: req.OriginChain,
		ClaimedAddress: req.OriginAddress,
	}

	res, err := a.Relayer.Relay(r.Context(), intent, proof)
	if err != nil {
		a.responseError(w, err)
		return
	}

	out := &PlaceBetResponse{
		Success:            true,
		Status:             string(res.State),
		TxHash:             res.TxHash,
		BlockNumber:        res.BlockNumber,
		DestinationAddress: res.DestinationAddress,
		OriginChain:        req.OriginChain,
		OriginAddress:      req.OriginAddress,
		GasLimit:           res.GasLimit,
	}
	if explorer := a.Estimator.Destination().Explorer; explorer != "" && res.TxHash != "" {
		out.Explorer = strings.TrimSuffix(explorer, "/") + "/tx/" + res.TxHash
	}

	code := http.StatusOK
	if res.State == types.StatePending {
		code = http.StatusAccepted
	}
	responseJSON(w, out, code)
}
