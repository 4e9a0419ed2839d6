// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Kind categorizes a gateway failure.
type Kind string

const (
	KindInvalidAPIKey Kind = "INVALID_API_KEY"
	KindModelNotFound Kind = "MODEL_NOT_FOUND"
	KindTimeout       Kind = "TIMEOUT"
	KindRateLimit     Kind = "RATE_LIMIT"
	KindBlocked       Kind = "BLOCKED"
	KindBadRequest    Kind = "BAD_REQUEST"
	KindUnexpected    Kind = "UNEXPECTED"
	KindMissingConfig Kind = "MISSING_CONFIG"
)

var allKinds = []Kind{
	KindInvalidAPIKey, KindModelNotFound, KindTimeout, KindRateLimit,
	KindBlocked, KindBadRequest, KindUnexpected, KindMissingConfig,
}

const sentinelStem = "LLM_ERROR["

// Prefix returns the published text prefix for kind, e.g.
// "LLM_ERROR[RATE_LIMIT]: ".
func Prefix(kind Kind) string {
	return sentinelStem + string(kind) + "]: "
}

// Error is a categorized gateway failure. Its text starts with the prefix of
// its kind so it stays recognizable after being flattened into a string.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return Prefix(e.Kind) + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind named by a sentinel-prefixed text, or "" when
// text does not start with a sentinel.
func KindOf(text string) Kind {
	text = strings.TrimSpace(text)
	for _, k := range allKinds {
		if strings.HasPrefix(text, Prefix(k)) {
			return k
		}
	}
	return ""
}

// IsSentinel reports whether text starts with a gateway error prefix.
func IsSentinel(text string) bool {
	return KindOf(text) != ""
}

// Is reports whether err is a gateway error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classify maps a backend error onto a Kind.
func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err, "request timed out")
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return classifyMessage(err)
	}

	msg := apiErr.Message
	switch apiErr.Code {
	case http.StatusBadRequest:
		if mentionsAPIKey(msg) {
			return newError(KindInvalidAPIKey, err, "invalid API key: %s", msg)
		}
		return newError(KindBadRequest, err, "malformed request: %s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(KindInvalidAPIKey, err, "invalid API key: %s", msg)
	case http.StatusNotFound:
		return newError(KindModelNotFound, err, "model not found: %s", msg)
	case http.StatusTooManyRequests:
		return newError(KindRateLimit, err, "rate limit exceeded: %s", msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newError(KindTimeout, err, "request timed out: %s", msg)
	}
	return newError(KindUnexpected, err, "unexpected API error %d: %s", apiErr.Code, msg)
}

// classifyMessage handles errors that did not come back as API errors,
// such as transport failures.
func classifyMessage(err error) *Error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case mentionsAPIKey(msg):
		return newError(KindInvalidAPIKey, err, "invalid API key: %s", msg)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return newError(KindTimeout, err, "request timed out: %s", msg)
	case strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "rate limit"):
		return newError(KindRateLimit, err, "rate limit exceeded: %s", msg)
	}
	return newError(KindUnexpected, err, "unexpected error: %s", msg)
}

func mentionsAPIKey(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "api_key")
}
