package handlers

import (
	"net/http"

	"gobetrelay/estimator"
)

func (a *API) ListMarkets(w http.ResponseWriter, r *http.Request) {
	decimals := a.Estimator.Destination().Decimals
	list := a.Markets.List()
	out := make([]MarketResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MarketResponse{
			ID:       m.Id.Uint64(),
			Title:    m.Title,
			OptionA:  m.OptionA,
			OptionB:  m.OptionB,
			MinBet:   estimator.FromBaseUnits(m.MinBet, decimals).String(),
			MaxBet:   estimator.FromBaseUnits(m.MaxBet, decimals).String(),
			EndTime:  m.EndTime.Int64(),
			Status:   m.Status,
			Resolved: m.Resolved,
			ImageURL: m.ImageUrl,
		})
	}
	responseJSON(w, out, http.StatusOK)
}
