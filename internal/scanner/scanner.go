// Package scanner reports likely mistakes in Starlark source without running it.
package scanner

import (
	"fmt"
	"strings"

	"github.com/rendis/codeflow/internal/source"
	"github.com/rendis/codeflow/pkg/schema"
	"go.starlark.net/syntax"
)

// MaxLineLength is the longest line accepted without a style issue.
const MaxLineLength = 100

// Scan returns tree issues in walk order followed by line issues in line
// order. A parse failure yields a single syntax_error issue.
func Scan(src string) []schema.Issue {
	f, err := source.Parse(src)
	if err != nil {
		line := 0
		msg := err.Error()
		if se, ok := err.(*source.SyntaxError); ok {
			line = se.Line
			msg = se.Msg
		}
		return []schema.Issue{{
			Category: schema.IssueSyntaxError,
			Line:     line,
			Message:  "Syntax error: " + msg,
			Severity: schema.SeverityError,
		}}
	}

	issues := []schema.Issue{}
	source.Walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.WhileStmt:
			if isTrue(n.Cond) {
				issues = append(issues, schema.Issue{
					Category: schema.IssuePotentialInfiniteLoop,
					Line:     source.Line(n),
					Message:  "Potential infinite loop detected: while True without visible exit",
					Severity: schema.SeverityWarning,
				})
			}
		case *syntax.BinaryExpr:
			if (n.Op == syntax.SLASH || n.Op == syntax.SLASHSLASH) && isZero(n.Y) {
				issues = append(issues, divisionIssue(n))
			}
		case *syntax.AssignStmt:
			if (n.Op == syntax.SLASH_EQ || n.Op == syntax.SLASHSLASH_EQ) && isZero(n.RHS) {
				issues = append(issues, divisionIssue(n))
			}
		}
		return true
	})

	for i, line := range strings.Split(src, "\n") {
		lineNo := i + 1
		if n := len([]rune(line)); n > MaxLineLength {
			issues = append(issues, schema.Issue{
				Category: schema.IssueLineTooLong,
				Line:     lineNo,
				Message:  fmt.Sprintf("Line too long (%d > %d characters)", n, MaxLineLength),
				Severity: schema.SeverityStyle,
			})
		}
		if strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
			issues = append(issues, schema.Issue{
				Category: schema.IssueTrailingWhitespace,
				Line:     lineNo,
				Message:  "Trailing whitespace",
				Severity: schema.SeverityStyle,
			})
		}
	}
	return issues
}

func divisionIssue(n syntax.Node) schema.Issue {
	return schema.Issue{
		Category: schema.IssueDivisionByZero,
		Line:     source.Line(n),
		Message:  "Division by zero detected",
		Severity: schema.SeverityError,
	}
}

func isTrue(e syntax.Expr) bool {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			break
		}
		e = p.X
	}
	id, ok := e.(*syntax.Ident)
	return ok && id.Name == "True"
}

// isZero matches the literal 0 or 0.0, optionally parenthesized.
func isZero(e syntax.Expr) bool {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			break
		}
		e = p.X
	}
	lit, ok := e.(*syntax.Literal)
	if !ok {
		return false
	}
	switch v := lit.Value.(type) {
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}
