package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var errDecode = errors.New("decode response")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// API error (network failure, decode error, cancellation).
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

func IsConflict(err error) bool { return StatusCode(err) == http.StatusConflict }

func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// Message returns the user-facing message of err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ExtractMessage pulls a readable message out of an error body, trying in
// order: error.details[], error.message, message, a plain-text body, and
// finally the compacted JSON itself. fallback is used for empty bodies.
func ExtractMessage(raw []byte, fallback string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fallback
	}

	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		if json.Valid(raw) {
			return compact(raw)
		}
		return string(raw)
	}

	if len(body.Error) > 0 {
		var nested struct {
			Message string            `json:"message"`
			Details []json.RawMessage `json:"details"`
		}
		if json.Unmarshal(body.Error, &nested) == nil {
			if msg := joinDetails(nested.Details); msg != "" {
				return msg
			}
			if nested.Message != "" {
				return nested.Message
			}
		} else {
			var s string
			if json.Unmarshal(body.Error, &s) == nil && s != "" && body.Message == "" {
				return s
			}
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return compact(raw)
}

func joinDetails(details []json.RawMessage) string {
	var parts []string
	for _, d := range details {
		var s string
		if json.Unmarshal(d, &s) == nil {
			if s != "" {
				parts = append(parts, s)
			}
			continue
		}
		var obj struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if json.Unmarshal(d, &obj) == nil && obj.Message != "" {
			if obj.Field != "" {
				parts = append(parts, obj.Field+": "+obj.Message)
			} else {
				parts = append(parts, obj.Message)
			}
		}
	}
	return strings.Join(parts, "; ")
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
