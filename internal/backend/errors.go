package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const uniqueViolationCode = "23505"

// APIError is a non-2xx response of the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, msg)
}

// IsUniqueViolation reports whether err is a duplicate-key rejection of the store.
// A response carrying any other SQLSTATE, such as a 409 for a foreign key, is not one.
func IsUniqueViolation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != "" {
		return apiErr.Code == uniqueViolationCode
	}
	return apiErr.Status == http.StatusConflict ||
		strings.Contains(strings.ToLower(apiErr.Message), "duplicate key")
}

// errorPayload covers PostgREST, auth and storage error shapes.
type errorPayload struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          any    `json:"details"`
	Hint             string `json:"hint"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Code = firstNonEmpty(valueAsString(payload.Code), payload.ErrorCode)
	apiErr.Message = firstNonEmpty(payload.Message, payload.Msg, payload.ErrorDescription, payload.Error)
	apiErr.Details = valueAsString(payload.Details)
	apiErr.Hint = payload.Hint

	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func valueAsString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return fmt.Sprintf("%g", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
