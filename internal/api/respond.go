package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/echolag-barista/server/internal/core"
	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

type errorBody struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("Failed to write response body")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeAppError answers with the status and safe message carried by err.
// Internal details are only echoed in development.
func writeAppError(w http.ResponseWriter, env core.Environment, err error) {
	status := errx.StatusOf(err)
	msg := errx.MessageOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Str("error", errx.Redact(err.Error())).Msg("Request failed")
		if env.ExposeErrorDetails() {
			msg = errx.Redact(err.Error())
		}
	}
	writeError(w, status, msg)
}

// decodeJSON reads a single JSON value from the request body. On failure the
// error response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	logx.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected malformed request body")
	writeError(w, http.StatusBadRequest, errx.InvalidBodyMessage)
	return false
}
