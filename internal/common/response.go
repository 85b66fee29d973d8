package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithServiceError maps a service-layer error to its HTTP status
// and writes it as a JSON error body.
func RespondWithServiceError(w http.ResponseWriter, err error) {
	RespondWithError(w, HTTPStatusFromError(err), err.Error())
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written; nothing left to do but drop it.
		return
	}
}
