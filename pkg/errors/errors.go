package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes failures raised while fetching profile content
type ErrorType string

const (
	ErrorTypeChallengeRequired ErrorType = "challenge_required"
	ErrorTypeRateLimit         ErrorType = "rate_limit"
	ErrorTypeConnection        ErrorType = "connection_error"
	ErrorTypeProfileNotFound   ErrorType = "profile_not_found"
	ErrorTypePrivateProfile    ErrorType = "private_profile"
	ErrorTypeUnauthorized      ErrorType = "unauthorized"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error represents a classified fetch failure with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a classified error
func New(errorType ErrorType, message string, code int) *Error {
	return &Error{Type: errorType, Message: message, Code: code}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeChallengeRequired, ErrorTypeRateLimit, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// ClassifyStatusCode maps an HTTP status code to an error type
func ClassifyStatusCode(statusCode int) ErrorType {
	switch statusCode {
	case 0: // transport failure, no response
		return ErrorTypeConnection
	case 429, 503:
		return ErrorTypeRateLimit
	case 401, 403:
		return ErrorTypeUnauthorized
	case 404:
		return ErrorTypeProfileNotFound
	default:
		if statusCode >= 500 {
			return ErrorTypeConnection
		}
		return ErrorTypeUnknown
	}
}

// Classify maps an arbitrary failure into a typed Error. It is total: every
// input yields exactly one category, defaulting to unknown. Already-classified
// errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "challenge"):
		return &Error{Type: ErrorTypeChallengeRequired, Message: err.Error()}
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return &Error{Type: ErrorTypeRateLimit, Message: err.Error()}
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporary"),
		strings.Contains(msg, "network"):
		return &Error{Type: ErrorTypeConnection, Message: err.Error()}
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "not exist"),
		strings.Contains(msg, "404"):
		return &Error{Type: ErrorTypeProfileNotFound, Message: err.Error()}
	case strings.Contains(msg, "private"):
		return &Error{Type: ErrorTypePrivateProfile, Message: err.Error()}
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "login"),
		strings.Contains(msg, "session"):
		return &Error{Type: ErrorTypeUnauthorized, Message: err.Error()}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: err.Error()}
	}
}

// guidance maps each error type to actionable advice surfaced on failed records
var guidance = map[ErrorType]string{
	ErrorTypeChallengeRequired: "Instagram requires verification. Try: 1) Use fresh session cookies from browser, 2) Enable proxy, 3) Reduce scraping rate",
	ErrorTypeRateLimit:         "Instagram rate limit detected. Increase delay between profiles or use proxies",
	ErrorTypeConnection:        "Network connection issue. Check internet connectivity and retry",
	ErrorTypeProfileNotFound:   "Profile does not exist or has been deleted. Verify the username",
	ErrorTypePrivateProfile:    "Profile is private. Authentication and following required",
	ErrorTypeUnauthorized:      "Authentication required or session expired. Provide valid session cookies",
}

// Guidance returns user-facing advice for an error type
func Guidance(errorType ErrorType) string {
	if g, ok := guidance[errorType]; ok {
		return g
	}
	return "An error occurred. Check logs for details"
}

// IsCancellation reports whether an error stems from run cancellation rather
// than a fetch failure
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsProfileScoped reports whether an error type invalidates the whole profile,
// not just the content type being fetched
func IsProfileScoped(errorType ErrorType) bool {
	return errorType == ErrorTypeProfileNotFound || errorType == ErrorTypePrivateProfile
}
