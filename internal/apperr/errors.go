// Package apperr defines the application error taxonomy and the central
// error handler that turns failures into user-facing replies.
package apperr

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

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

// NewValidationError marks user input that failed validation. The handler
// re-prompts with guidance and no state advances.
func NewValidationError(msg, userMsg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: userMsg,
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewDatabaseError wraps a persistence failure.
func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: "Tuvimos un problema temporal, intenta de nuevo en un momento.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewClassifierError records a classification failure. Callers fall back to
// the neutral intent; this error never reaches the end user as an error.
func NewClassifierError(cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     "intent classifier call failed",
		UserMessage: "",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewAdviceError records an advice-generation failure. The alert that wanted
// the tip is still sent with a fallback tip.
func NewAdviceError(cause error) *AppError {
	return &AppError{
		Code:        "E310",
		Message:     "advice generation failed",
		UserMessage: "",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

// NewIntegrityError marks broken reference data, such as a missing default
// category. Fatal for the request: the user is told to contact support.
func NewIntegrityError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Algo anda mal con tu cuenta. Escríbenos a soporte para arreglarlo.",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}

// NewDeliveryError records an outbound delivery failure. Logged only; never
// rolls back the state mutation that preceded it.
func NewDeliveryError(cause error) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     "outbound delivery failed",
		UserMessage: "",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}
