package handlers

import (
	"net/http"

	"gobetrelay/estimator"
	"gobetrelay/types"
)

func (a *API) Quote(w http.ResponseWriter, r *http.Request) {
	originChain := r.URL.Query().Get("originChain")
	amount, err := estimator.ParseAmount(r.URL.Query().Get("amount"), a.Estimator.Destination().Decimals)
	if err != nil {
		a.responseError(w, err)
		return
	}

	quote, err := a.Estimator.Quote(amount, originChain)
	if err != nil && types.KindOf(err) != types.ErrBridgeAmountTooSmall {
		a.responseError(w, err)
		return
	}
	if err != nil {
		// still show the numbers so the client can raise the stake
		responseJSON(w, struct {
			APIResponse
			Quote interface{} `json:"quote"`
		}{
			APIResponse: APIResponse{
				Status:    "error",
				Error:     types.ReasonOf(err),
				ErrorKind: string(types.KindOf(err)),
				Field:     "amount",
			},
			Quote: quote,
		}, http.StatusBadRequest)
		return
	}
	responseJSON(w, quote, http.StatusOK)
}
