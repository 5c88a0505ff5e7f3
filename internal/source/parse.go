// Package source adapts the Starlark parser for the flowchart synthesizer,
// the issue scanner and the sandbox pre-check.
package source

import (
	"errors"
	"reflect"

	"github.com/rendis/codeflow/pkg/schema"
	"go.starlark.net/syntax"
)

// Filename is the name reported in parser and runtime positions.
const Filename = "main.star"

// Options enables the full classroom dialect: top-level control flow,
// while loops, sets, recursion and reassignment of globals.
func Options() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// SyntaxError describes a parse failure. Line and Col are 1-based, 0 when unknown.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string { return e.Msg }

// Parse parses src as a Starlark file.
func Parse(src string) (*syntax.File, error) {
	f, err := Options().Parse(Filename, src, 0)
	if err != nil {
		return nil, toSyntaxError(err)
	}
	return f, nil
}

// ToCodeflowError converts a Parse error into a PARSE_ERROR.
func ToCodeflowError(err error) *schema.CodeflowError {
	var se *SyntaxError
	if errors.As(err, &se) {
		return schema.NewError(schema.ErrCodeParse, se.Msg).WithLine(se.Line).WithCause(err)
	}
	return schema.NewError(schema.ErrCodeParse, err.Error()).WithCause(err)
}

func toSyntaxError(err error) *SyntaxError {
	var perr syntax.Error
	if errors.As(err, &perr) {
		return &SyntaxError{Line: int(perr.Pos.Line), Col: int(perr.Pos.Col), Msg: perr.Msg}
	}
	return &SyntaxError{Msg: err.Error()}
}

// Walk visits n and its descendants in pre-order (source order).
// Returning false from fn skips the node's children. Unlike syntax.Walk it
// covers every statement the parser produces, while loops included.
func Walk(n syntax.Node, fn func(syntax.Node) bool) {
	if isNil(n) || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *syntax.File:
		walkStmts(n.Stmts, fn)
	case *syntax.ExprStmt:
		Walk(n.X, fn)
	case *syntax.IfStmt:
		Walk(n.Cond, fn)
		walkStmts(n.True, fn)
		walkStmts(n.False, fn)
	case *syntax.WhileStmt:
		Walk(n.Cond, fn)
		walkStmts(n.Body, fn)
	case *syntax.ForStmt:
		Walk(n.Vars, fn)
		Walk(n.X, fn)
		walkStmts(n.Body, fn)
	case *syntax.DefStmt:
		Walk(n.Name, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
		walkStmts(n.Body, fn)
	case *syntax.AssignStmt:
		Walk(n.LHS, fn)
		Walk(n.RHS, fn)
	case *syntax.ReturnStmt:
		Walk(n.Result, fn)
	case *syntax.LoadStmt:
		Walk(n.Module, fn)
		for _, id := range n.From {
			Walk(id, fn)
		}
		for _, id := range n.To {
			Walk(id, fn)
		}
	case *syntax.ListExpr:
		walkExprs(n.List, fn)
	case *syntax.TupleExpr:
		walkExprs(n.List, fn)
	case *syntax.DictExpr:
		walkExprs(n.List, fn)
	case *syntax.DictEntry:
		Walk(n.Key, fn)
		Walk(n.Value, fn)
	case *syntax.ParenExpr:
		Walk(n.X, fn)
	case *syntax.CondExpr:
		Walk(n.Cond, fn)
		Walk(n.True, fn)
		Walk(n.False, fn)
	case *syntax.IndexExpr:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *syntax.SliceExpr:
		Walk(n.X, fn)
		Walk(n.Lo, fn)
		Walk(n.Hi, fn)
		Walk(n.Step, fn)
	case *syntax.Comprehension:
		Walk(n.Body, fn)
		for _, c := range n.Clauses {
			Walk(c, fn)
		}
	case *syntax.ForClause:
		Walk(n.Vars, fn)
		Walk(n.X, fn)
	case *syntax.IfClause:
		Walk(n.Cond, fn)
	case *syntax.UnaryExpr:
		Walk(n.X, fn)
	case *syntax.BinaryExpr:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *syntax.DotExpr:
		Walk(n.X, fn)
		Walk(n.Name, fn)
	case *syntax.CallExpr:
		Walk(n.Fn, fn)
		walkExprs(n.Args, fn)
	case *syntax.LambdaExpr:
		walkExprs(n.Params, fn)
		Walk(n.Body, fn)
	}
	// Ident, Literal and BranchStmt are leaves; unknown nodes are not descended.
}

func walkStmts(stmts []syntax.Stmt, fn func(syntax.Node) bool) {
	for _, s := range stmts {
		Walk(s, fn)
	}
}

func walkExprs(exprs []syntax.Expr, fn func(syntax.Node) bool) {
	for _, x := range exprs {
		Walk(x, fn)
	}
}

// isNil reports whether n is nil, including a typed nil pointer held in
// the interface. Every syntax node is a pointer.
func isNil(n syntax.Node) bool {
	return n == nil || reflect.ValueOf(n).IsNil()
}

// Line returns the 1-based start line of n, or 0.
func Line(n syntax.Node) int {
	start, _ := n.Span()
	if !start.IsValid() {
		return 0
	}
	return int(start.Line)
}
