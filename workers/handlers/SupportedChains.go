package handlers

import "net/http"

func (a *API) SupportedChains(w http.ResponseWriter, r *http.Request) {
	chains := a.Registry.List()
	out := make([]ChainResponse, 0, len(chains))
	for _, c := range chains {
		out = append(out, ChainResponse{
			Namespace:       c.Namespace,
			Name:            c.Name,
			Family:          c.Family,
			Currency:        c.Currency,
			Decimals:        c.Decimals,
			Native:          c.Native,
			Rate:            c.Rate,
			MinBridgeAmount: c.MinBridgeAmount,
			Gateway:         c.Gateway,
			Explorer:        c.Explorer,
		})
	}
	responseJSON(w, out, http.StatusOK)
}
