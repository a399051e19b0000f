package rest

import (
	"chat-relay/errors"
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error to its status. Server side failures never
// expose their cause.
func writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	message := errors.PublicMessage(err)
	if status >= http.StatusInternalServerError {
		message = "Server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
