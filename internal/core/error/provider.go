package errx

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// ProviderErrorKind separates broken credentials or model access from
// failures that may succeed when the user simply speaks again.
type ProviderErrorKind string

const (
	ProviderConfig    ProviderErrorKind = "config"
	ProviderTransient ProviderErrorKind = "transient"
)

// ConfigErrorMessage prefixes every configuration-class provider error.
const ConfigErrorMessage = "API configuration error - please verify your API key and permissions"

// ProviderError is a generative-model failure with its key material already redacted.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Kind == ProviderConfig {
		return fmt.Sprintf("%s: %v", ConfigErrorMessage, e.Err)
	}
	return fmt.Sprintf("failed to generate response: %v", e.Err)
}

// Unwrap returns the redacted cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a configuration-class provider failure.
func IsConfigError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderConfig
	}
	return err != nil && strings.Contains(err.Error(), "API configuration error")
}

// WrapProvider classifies err from the model provider and redacts it. A nil
// err yields nil.
func WrapProvider(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	status := providerStatus(err)
	kind := ProviderTransient
	switch status {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		kind = ProviderConfig
	}
	if strings.Contains(err.Error(), "API configuration error") {
		kind = ProviderConfig
	}
	return &ProviderError{
		Kind:       kind,
		StatusCode: status,
		Err:        errors.New(Redact(err.Error())),
	}
}

var genaiStatusPattern = regexp.MustCompile(`Error (\d{3}), Message:`)

func providerStatus(err error) int {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code
	}
	if m := genaiStatusPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

var redactions = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`([?&])key=[^&\s"']+`), "${1}key=REDACTED"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "REDACTED_API_KEY"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}REDACTED"},
	{regexp.MustCompile(`(?i)(xi-api-key[:=]\s*)\S+`), "${1}REDACTED"},
}

// Redact removes API keys and query-string secrets from s so it can be logged.
func Redact(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}
	return s
}
