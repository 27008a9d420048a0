package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AuthFailedMessage is the only text the login surface ever shows for a
// failed login, whatever the cause.
const AuthFailedMessage = "Invalid credentials or server error"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Detail)
}

// AuthError wraps any login failure (bad credentials, server down).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return AuthFailedMessage }

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError wraps a failed read (list, get, explanation).
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed mutating call (document, decision, letter).
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }

func (e *SubmissionError) Unwrap() error { return e.Err }

// detailFrom extracts the FastAPI "detail" field, falling back to a trimmed
// copy of the body.
func detailFrom(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var text string
			if err := json.Unmarshal(payload.Detail, &text); err == nil {
				return strings.TrimSpace(text)
			}
			return strings.TrimSpace(string(payload.Detail))
		}
		if payload.Error != "" {
			return strings.TrimSpace(payload.Error)
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "…"
	}
	return text
}
