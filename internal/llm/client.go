// Package llm wraps the generative-text capability behind a small interface.
// The production implementation streams from the Gemini API with an overall
// call timeout, surfaces content-policy blocking distinctly from ordinary
// failure, and preserves partial output when a stream stalls.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Client generates text from a prompt. When jsonMode is set, the returned
// string is a valid JSON document.
type Client interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// ErrBlocked indicates the capability refused the prompt on content-policy
// grounds. This is distinct from transport or parsing failures.
var ErrBlocked = errors.New("llm: content generation blocked by API")

// PartialError carries partial streamed output from a call that stalled or
// failed mid-stream. The partial text is surfaced, never silently dropped.
type PartialError struct {
	Partial string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("llm: stream failed after %d bytes of partial output: %v", len(e.Partial), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls the first JSON object out of a model response, tolerating
// surrounding prose or markdown fences. Returns an error when no valid JSON
// object can be found.
func ExtractJSON(response string) (string, error) {
	match := jsonObjectPattern.FindString(response)
	if match == "" {
		return "", fmt.Errorf("no JSON object found in response")
	}
	if !json.Valid([]byte(match)) {
		// Trim trailing junk: retry with progressively shorter candidates
		// ending at each closing brace.
		for i := len(match) - 1; i > 0; i-- {
			if match[i] != '}' {
				continue
			}
			candidate := match[:i+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("response contains malformed JSON")
	}
	return match, nil
}

// ErrorPayload wraps an error message into the minimal JSON shape consumers
// of jsonMode output expect, so downstream fields are never missing.
func ErrorPayload(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

// IsErrorPayload reports whether a JSON response is an error payload.
func IsErrorPayload(response string) bool {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &probe); err != nil {
		return false
	}
	return probe.Error != ""
}
