package freescout

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError reports a request that never produced an HTTP response:
// DNS failure, refused connection, TLS error or timeout.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not connect to FreeScout (%s): %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx response, or a 2xx response whose body could
// not be decoded.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FreeScout API error %d: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a failed response, preferring the
// server's JSON message over the generic status text.
func newAPIError(path string, statusCode int, body []byte) *APIError {
	msg := http.StatusText(statusCode)

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		msg = strings.TrimSpace(payload.Message)
	}

	return &APIError{StatusCode: statusCode, Message: msg, Path: path}
}

// SetupProblem classifies an error from [Client.Ping] the way a setup wizard
// reports it to a user.
type SetupProblem string

const (
	// SetupOK means the credentials and URL were accepted.
	SetupOK SetupProblem = ""

	// SetupInvalidAuth means the API key was rejected (HTTP 401).
	SetupInvalidAuth SetupProblem = "invalid_auth"

	// SetupCannotConnect covers a wrong URL (HTTP 404), any other non-2xx
	// status, and connection-level failures.
	SetupCannotConnect SetupProblem = "cannot_connect"
)

// Classify maps an error to a [SetupProblem].
func Classify(err error) SetupProblem {
	if err == nil {
		return SetupOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return SetupInvalidAuth
	}
	return SetupCannotConnect
}

// Description returns the user-facing message for a setup problem.
func (p SetupProblem) Description() string {
	switch p {
	case SetupOK:
		return "connected"
	case SetupInvalidAuth:
		return "invalid API key"
	default:
		return "cannot connect to FreeScout; check the base URL"
	}
}
