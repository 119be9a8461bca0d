package parsers

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxErrSnippet = 200
)

var (
	// ErrNoJSON means the model text contained no {...} object.
	ErrNoJSON = errors.New("no json object in model output")
	// ErrContentTooLarge means the model text exceeded maxContentLen.
	ErrContentTooLarge = errors.New("model output too large")
)

// StripCodeFence removes a leading ```/```json line and a trailing ``` if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject strips fences and returns the span from the first '{' to
// the last '}', tolerating prose on either side.
func ExtractJSONObject(content string) (string, error) {
	if len(content) > maxContentLen {
		return "", fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(content))
	}
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}
	s := StripCodeFence(content)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: %q", ErrNoJSON, snippet(s))
	}
	return s[start : end+1], nil
}

func snippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet] + "..."
}
