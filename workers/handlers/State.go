package handlers

import (
	"net/http"
)

// liveness only, never touches dependencies
func State(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIStateResponse{
		Status: "ok",
	}, http.StatusOK)
}
