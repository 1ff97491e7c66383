// Package httpjson writes the API's JSON responses.
//
// Every error leaves the server as {"error": "..."} with an appropriate
// status. Business-rule errors carry their own message; anything
// unrecognized becomes a generic 500 with the detail logged server-side
// only.
package httpjson

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorBody is the envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, errorBody{Error: msg})
}

// Internal logs err and writes a generic 500. The detail never reaches
// the client.
func Internal(w http.ResponseWriter, log *zap.Logger, err error) {
	if log != nil {
		log.Error("unexpected error", zap.Error(err))
	}
	Error(w, http.StatusInternalServerError, "something went wrong")
}
