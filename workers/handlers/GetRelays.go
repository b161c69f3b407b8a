package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"gobetrelay/config"
)

func (a *API) GetRelaysByStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	if _, ok := config.RedisStatusSets[status]; !ok {
		a.badRequest(w, "status", "unknown status")
		return
	}

	recs, err := a.Store.FindAllByStatus(r.Context(), status)
	if err != nil {
		a.responseError(w, err)
		return
	}
	responseJSON(w, recs, http.StatusOK)
}
