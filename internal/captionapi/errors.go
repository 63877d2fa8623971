package captionapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fpang/captioncraft/internal/jsonutil"
)

// DefaultFailureMessage is shown when no structured message can be extracted.
const DefaultFailureMessage = "Failed to generate caption. Please try again."

// ErrorBody is the structured part of a failed backend response. The
// application's own handler fills Error (and Details); framework-level
// rejections fill Detail with a string or a list of {"msg": ...} entries.
type ErrorBody struct {
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// DetailMessage returns Detail as text: the string itself, or the first
// entry's msg when Detail is a validation-error list.
func (b ErrorBody) DetailMessage() string {
	if len(b.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(b.Detail, &list); err == nil {
		for _, item := range list {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       ErrorBody
	Raw        string
}

func (e *APIError) Error() string {
	if msg := messageFromAPIError(e); msg != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: string(raw)}

	// Bodies that are not JSON (proxy error pages) leave Body empty.
	if body, err := jsonutil.ParseJSON[ErrorBody](string(raw)); err == nil {
		apiErr.Body = body
	}
	return apiErr
}

// messageRule extracts one candidate message from a failed response.
type messageRule struct {
	name    string
	extract func(*APIError) string
}

// failureMessageRules is the ordered extraction chain: the application-level
// error field first, then the framework detail field.
var failureMessageRules = []messageRule{
	{name: "error", extract: func(e *APIError) string { return strings.TrimSpace(e.Body.Error) }},
	{name: "detail", extract: func(e *APIError) string { return e.Body.DetailMessage() }},
}

func messageFromAPIError(e *APIError) string {
	for _, rule := range failureMessageRules {
		if msg := rule.extract(e); msg != "" {
			return msg
		}
	}
	return ""
}

// FailureMessage returns the most specific human-readable message for a
// failed caption request, falling back to DefaultFailureMessage for
// transport errors, unstructured bodies and empty captions.
func FailureMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := messageFromAPIError(apiErr); msg != "" {
			return msg
		}
	}
	return DefaultFailureMessage
}
