package handlers

import (
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"gobetrelay/estimator"
	"gobetrelay/types"
)

func (a *API) relayBalance(r *http.Request) (*big.Int, error) {
	balance, err := a.Chain.BalanceAt(r.Context(), a.RelayAddress)
	if err != nil {
		a.Logger.Warn("error getting relay account balance", zap.Error(err))
		return nil, types.WrapError(types.ErrRpcUnavailable, "cannot read relay account balance", err)
	}
	return balance, nil
}

// Balance reports what the relay account has left to pay for bets
func (a *API) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.relayBalance(r)
	if err != nil {
		a.responseError(w, err)
		return
	}
	dest := a.Estimator.Destination()
	responseJSON(w, &BalanceResponse{
		Address:  a.RelayAddress.Hex(),
		Balance:  estimator.FromBaseUnits(balance, dest.Decimals).String(),
		Currency: dest.Currency,
	}, http.StatusOK)
}

// BalancePlain is the whole-unit balance as text, for monitoring scripts
func (a *API) BalancePlain(w http.ResponseWriter, r *http.Request) {
	balance, err := a.relayBalance(r)
	if err != nil {
		responsePlain(w, []byte("error"), http.StatusInternalServerError)
		return
	}
	whole := estimator.FromBaseUnits(balance, a.Estimator.Destination().Decimals).Truncate(0)
	responsePlain(w, []byte(whole.String()), http.StatusOK)
}
