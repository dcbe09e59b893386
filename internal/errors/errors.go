// Package errors defines the application error taxonomy and central handling.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries a machine-readable code, an operator-facing message, and a
// user-facing message in the bot's reply language.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewProviderUnreachableError marks a network or timeout failure talking to an
// external data provider.
func NewProviderUnreachableError(provider string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("provider %s unreachable", provider),
		UserMessage: "Что-то пошло не так...",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewProviderMalformedError marks a provider response with an unexpected shape
// or missing required fields.
func NewProviderMalformedError(provider string, cause error) *AppError {
	return &AppError{
		Code:        "E301",
		Message:     fmt.Sprintf("provider %s returned malformed response", provider),
		UserMessage: "Что-то пошло не так...",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewNotFoundError marks a missing entity (city, profile).
func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:        "E404",
		Message:     fmt.Sprintf("%s not found", what),
		UserMessage: "Что-то пошло не так...",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewInvalidInputError marks unrecognized command text in a state expecting a
// closed vocabulary. It is always recovered locally by re-issuing the prompt
// and never shown to the user as an error.
func NewInvalidInputError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: "Пожалуйста, используйте команды с клавиатуры",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewDatabaseError marks a profile store failure.
func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}
