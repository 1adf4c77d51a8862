package api

import (
	"encoding/json"
	"net/http"

	"fleetctl/internal/apperr"
)

// writeError renders err as the standard JSON error envelope, mapping its
// apperr.Kind to the HTTP status code the mux writes.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(apperr.ToEnvelope(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
