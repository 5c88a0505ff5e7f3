package schema

// IssueCategory names the kind of problem the scanner found.
type IssueCategory string

const (
	IssueSyntaxError           IssueCategory = "syntax_error"
	IssuePotentialInfiniteLoop IssueCategory = "potential_infinite_loop"
	IssueDivisionByZero        IssueCategory = "division_by_zero"
	IssueLineTooLong           IssueCategory = "line_too_long"
	IssueTrailingWhitespace    IssueCategory = "trailing_whitespace"
)

// Severity indicates how serious an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityStyle   Severity = "style"
)

// Issue is a single scanner finding. Line is 1-based, 0 when unknown.
type Issue struct {
	Category IssueCategory `json:"type"`
	Line     int           `json:"line"`
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
}
