package handlers

import (
	"net/http"

	"gobetrelay/types"
)

// VerifySignature checks a signature without relaying anything
func (a *API) VerifySignature(w http.ResponseWriter, r *http.Request) {
	var req VerifySignatureRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	if req.Message == "" || req.Signature == "" || req.OriginAddress == "" {
		a.badRequest(w, "signature", "message, signature and originAddress are required")
		return
	}
	if _, err := a.Registry.Lookup(req.OriginChain); err != nil {
		a.responseError(w, err)
		return
	}

	res := a.Verifier.Verify(types.SignatureProof{
		Message:        req.Message,
		Signature:      req.Signature,
		ChainNamespace: req.OriginChain,
		ClaimedAddress: req.OriginAddress,
	})

	out := &VerifySignatureResponse{
		Success:          true,
		IsValid:          res.Valid,
		RecoveredAddress: res.RecoveredAddress,
	}
	if res.Err != nil {
		out.Error = types.ReasonOf(res.Err)
		out.ErrorKind = string(types.KindOf(res.Err))
	}
	responseJSON(w, out, http.StatusOK)
}
