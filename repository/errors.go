package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyResponse is returned when a write asked for the created row but got none back
var ErrEmptyResponse = errors.New("backend returned no rows")

// ValidationError marks input rejected before any request was sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// RemoteError is a non-2xx answer (or a policy-filtered write) from the REST API
type RemoteError struct {
	Status  int
	Message string
	Code    string
	Details string
	Hint    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Status, e.Message)
}

// UploadError wraps a failure to store an attachment payload
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// backendError is the PostgREST / storage error body
type backendError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	Error   string `json:"error"`
}

// newRemoteError parses body as a backend error. The message falls back to the
// hint, then the raw body text, then fallback (or the status text).
func newRemoteError(status int, body []byte, fallback string) *RemoteError {
	e := &RemoteError{Status: status}
	var parsed backendError
	if err := json.Unmarshal(body, &parsed); err == nil {
		e.Code = parsed.Code
		e.Details = parsed.Details
		e.Hint = parsed.Hint
		e.Message = parsed.Message
		if e.Message == "" {
			e.Message = parsed.Error
		}
		if e.Message == "" {
			e.Message = parsed.Hint
		}
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = fallback
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return e
}
