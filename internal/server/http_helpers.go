package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// Wire error codes, matched by the HTTP client when mapping responses
// back to the typed errors.
const (
	codeGameNotFound      = "game-not-found"
	codePlayerNotFound    = "player-not-found"
	codeTooManyAttempts   = "too-many-attempts"
	codeInvalidParameters = "invalid-parameters"
	codeInternal          = "internal"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{
		Error:   code,
		Details: details,
	})
}
