package handlers

import (
	"context"
	"net/http"
	"time"
)

func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := a.Store.Ping(ctx); err != nil {
		responseJSON(w, &APIResponse{Status: "error", Message: "activity log unreachable"}, http.StatusServiceUnavailable)
		return
	}
	if _, err := a.Chain.BlockNumber(ctx); err != nil {
		responseJSON(w, &APIResponse{Status: "error", Message: "destination chain unreachable"}, http.StatusServiceUnavailable)
		return
	}
	responseJSON(w, &APIResponse{
		Success: true,
		Status:  "ok",
	}, http.StatusOK)
}
