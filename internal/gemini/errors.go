package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoAPIKey is returned when a client is built without a key.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrRateLimited is returned once rate-limit retries are exhausted.
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")
)

// APIError is an error reported by the backend, either as a non-2xx
// response or inside a streamed event.
type APIError struct {
	HTTPStatus int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, "server returned %d", e.HTTPStatus)
	} else {
		b.WriteString("server error")
	}
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// errorBody is the Google API error envelope.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (b *errorBody) toAPIError(httpStatus int) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: b.Code, Status: b.Status, Message: b.Message}
}

// parseAPIError builds an APIError from a failed response body, falling
// back to the raw body when it is not the usual envelope.
func parseAPIError(httpStatus int, body []byte) *APIError {
	var env struct {
		Error *errorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return env.Error.toAPIError(httpStatus)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(httpStatus)
	}
	return &APIError{HTTPStatus: httpStatus, Message: msg}
}

// IsRetryable reports rate limiting and quota exhaustion.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatus == http.StatusTooManyRequests || apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		if strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToUpper(msg), "RESOURCE_EXHAUSTED")
}

var apiKeySignatures = []string{
	"api key not valid",
	"api_key_invalid",
	"permission_denied",
	"api key service disabled",
}

// IsAPIKeyError reports errors caused by a missing, invalid or disabled key.
func IsAPIKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range apiKeySignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// UserMessage turns err into the message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAPIKeyError(err):
		return "API key check failed: it may be invalid or expired. Set a valid key with: pulse set key <api-key>"
	case errors.Is(err, ErrRateLimited), IsRetryable(err):
		return ErrRateLimited.Error()
	default:
		return err.Error()
	}
}
