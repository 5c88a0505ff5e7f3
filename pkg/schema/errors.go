package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeDisallowed  = "DISALLOWED_CAPABILITY"
	ErrCodeRuntime     = "RUNTIME_ERROR"
	ErrCodeTimeout     = "TIMEOUT_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeIsolation   = "ISOLATION_ERROR"
	ErrCodeStore       = "STORE_ERROR"
	ErrCodeUnsupported = "UNSUPPORTED"
)

// CodeflowError is the structured error type for all codeflow operations.
type CodeflowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Line    int            `json:"line,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CodeflowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", e.Code, e.Line, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CodeflowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CodeflowError.
func NewError(code, message string) *CodeflowError {
	return &CodeflowError{Code: code, Message: message}
}

// NewErrorf creates a new CodeflowError with a formatted message.
func NewErrorf(code, format string, args ...any) *CodeflowError {
	return &CodeflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithLine attaches a 1-based source line to the error.
func (e *CodeflowError) WithLine(line int) *CodeflowError {
	e.Line = line
	return e
}

// WithCause attaches an underlying cause.
func (e *CodeflowError) WithCause(err error) *CodeflowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CodeflowError) WithDetails(details map[string]any) *CodeflowError {
	e.Details = details
	return e
}

// HasCode reports whether err is a *CodeflowError carrying code.
func HasCode(err error, code string) bool {
	ce, ok := err.(*CodeflowError)
	return ok && ce.Code == code
}
