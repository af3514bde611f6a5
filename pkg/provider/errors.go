package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrUnavailable marks an evidence source that could not be consulted at all
// (log source disabled, access denied). Callers must fail closed: unavailable
// evidence is never "unused".
var ErrUnavailable = errors.New("evidence source unavailable")

// ErrorKind is a normalized category for cloud API failures.
type ErrorKind string

const (
	ErrorKindAccessDenied        ErrorKind = "access_denied"
	ErrorKindNotFound            ErrorKind = "not_found"
	ErrorKindThrottled           ErrorKind = "throttled"
	ErrorKindDependencyViolation ErrorKind = "dependency_violation"
	ErrorKindValidation          ErrorKind = "validation"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindUnknown             ErrorKind = "unknown"
)

// ClassifiedError wraps an API error with a normalized category so the engine
// can branch on failure class without knowing service-specific codes.
type ClassifiedError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify maps context and smithy API errors into normalized categories.
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Kind: ErrorKindUnknown}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassifiedError{
			Kind:    ErrorKindTimeout,
			Code:    "Timeout",
			Message: "request timed out before the API returned a response",
			Err:     err,
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		message := apiErr.ErrorMessage()
		if message == "" {
			message = err.Error()
		}
		return ClassifiedError{
			Kind:    classifyByCode(code),
			Code:    code,
			Message: message,
			Err:     err,
		}
	}

	return ClassifiedError{
		Kind:    ErrorKindUnknown,
		Code:    "UnknownError",
		Message: err.Error(),
		Err:     err,
	}
}

// IsKind reports whether err classifies into the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return Classify(err).Kind == kind
}

// FormatUserError returns a human-friendly error string with the API code.
func FormatUserError(err error) string {
	classified := Classify(err)
	if classified.Code != "" {
		return fmt.Sprintf("%s (%s)", classified.Message, classified.Code)
	}
	return classified.Message
}

func classifyByCode(code string) ErrorKind {
	lower := strings.ToLower(code)
	switch {
	case strings.Contains(lower, "accessdenied"), strings.Contains(lower, "unauthorized"):
		return ErrorKindAccessDenied
	case strings.Contains(lower, "notfound"), strings.Contains(lower, "nosuch"):
		return ErrorKindNotFound
	case strings.Contains(lower, "dependencyviolation"), strings.Contains(lower, "resourceinuse"):
		return ErrorKindDependencyViolation
	case strings.Contains(lower, "throttl"), strings.Contains(lower, "toomanyrequests"), strings.Contains(lower, "requestlimitexceeded"):
		return ErrorKindThrottled
	case strings.Contains(lower, "validation"), strings.Contains(lower, "invalid"):
		return ErrorKindValidation
	default:
		return ErrorKindUnknown
	}
}
