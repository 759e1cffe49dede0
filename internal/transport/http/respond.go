package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "authhub/pkg/domain-errors"
)

// writeJSON encodes a payload with the standard headers.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError translates a domain error into the JSON error envelope. Only the
// coded message reaches the caller; causes stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, dErrors.StatusOf(err), map[string]string{
		"error": dErrors.Message(err),
		"code":  string(dErrors.CodeOf(err)),
	})
}

// writeErrorStatus responds with an explicit status and message, for
// transport-level failures that never were domain errors.
func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
