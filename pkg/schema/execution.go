package schema

import "math"

// TruncationMarker is appended to output that exceeded the capture limit.
const TruncationMarker = "\n... (output truncated)"

// ExecutionResult is the outcome of one restricted execution.
// Error is nil on success and always set on failure.
type ExecutionResult struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	Error         *string `json:"error"`
	ExecutionTime float64 `json:"execution_time"`
	Code          string  `json:"code,omitempty"`
	Traceback     string  `json:"traceback,omitempty"`
}

// ErrorMessage returns the error text or "".
func (r ExecutionResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Succeeded builds a successful result.
func Succeeded(output string, seconds float64) ExecutionResult {
	return ExecutionResult{Success: true, Output: output, ExecutionTime: RoundSeconds(seconds)}
}

// Failed builds a failed result carrying the error code and message.
func Failed(code, output, message string, seconds float64) ExecutionResult {
	return ExecutionResult{
		Success:       false,
		Output:        output,
		Error:         &message,
		Code:          code,
		ExecutionTime: RoundSeconds(seconds),
	}
}

// RoundSeconds rounds to millisecond precision.
func RoundSeconds(s float64) float64 {
	return math.Round(s*1000) / 1000
}
