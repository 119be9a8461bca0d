package speech

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned when no ElevenLabs API key is set.
var ErrNotConfigured = errors.New("ElevenLabs is not configured. Set ELEVENLABS_API_KEY to enable text-to-speech.")

// APIError is an error response from ElevenLabs.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: API error %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus maps the provider status to the one we answer with: provider
// 4xx/5xx pass through, anything else is 500.
func (e *APIError) HTTPStatus() int {
	if e.StatusCode >= 400 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
