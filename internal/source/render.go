package source

import (
	"strings"

	"go.starlark.net/syntax"
)

// Render reproduces an expression as source text. It reports false when the
// expression contains a node it cannot print.
func Render(e syntax.Expr) (string, bool) {
	var r renderer
	r.expr(e)
	return r.b.String(), !r.failed
}

// RenderOr renders e, returning fallback if rendering fails or yields nothing.
func RenderOr(e syntax.Expr, fallback string) string {
	if e == nil {
		return fallback
	}
	s, ok := Render(e)
	if !ok || s == "" {
		return fallback
	}
	return s
}

type renderer struct {
	b      strings.Builder
	failed bool
}

func (r *renderer) expr(e syntax.Expr) {
	if r.failed {
		return
	}
	switch e := e.(type) {
	case *syntax.Ident:
		r.b.WriteString(e.Name)
	case *syntax.Literal:
		r.b.WriteString(e.Raw)
	case *syntax.ParenExpr:
		r.b.WriteByte('(')
		r.expr(e.X)
		r.b.WriteByte(')')
	case *syntax.UnaryExpr:
		r.b.WriteString(e.Op.String())
		if e.Op == syntax.NOT {
			r.b.WriteByte(' ')
		}
		if e.X != nil {
			r.expr(e.X)
		}
	case *syntax.BinaryExpr:
		r.expr(e.X)
		if e.Op == syntax.EQ {
			// keyword argument
			r.b.WriteByte('=')
		} else {
			r.b.WriteString(" " + e.Op.String() + " ")
		}
		r.expr(e.Y)
	case *syntax.CallExpr:
		r.expr(e.Fn)
		r.b.WriteByte('(')
		r.list(e.Args)
		r.b.WriteByte(')')
	case *syntax.DotExpr:
		r.expr(e.X)
		r.b.WriteByte('.')
		r.b.WriteString(e.Name.Name)
	case *syntax.IndexExpr:
		r.expr(e.X)
		r.b.WriteByte('[')
		r.expr(e.Y)
		r.b.WriteByte(']')
	case *syntax.SliceExpr:
		r.expr(e.X)
		r.b.WriteByte('[')
		if e.Lo != nil {
			r.expr(e.Lo)
		}
		r.b.WriteByte(':')
		if e.Hi != nil {
			r.expr(e.Hi)
		}
		if e.Step != nil {
			r.b.WriteByte(':')
			r.expr(e.Step)
		}
		r.b.WriteByte(']')
	case *syntax.ListExpr:
		r.b.WriteByte('[')
		r.list(e.List)
		r.b.WriteByte(']')
	case *syntax.TupleExpr:
		paren := e.Lparen.IsValid()
		if paren {
			r.b.WriteByte('(')
		}
		r.list(e.List)
		if len(e.List) == 1 {
			r.b.WriteByte(',')
		}
		if paren {
			r.b.WriteByte(')')
		}
	case *syntax.DictExpr:
		r.b.WriteByte('{')
		r.list(e.List)
		r.b.WriteByte('}')
	case *syntax.DictEntry:
		r.expr(e.Key)
		r.b.WriteString(": ")
		r.expr(e.Value)
	case *syntax.CondExpr:
		r.expr(e.True)
		r.b.WriteString(" if ")
		r.expr(e.Cond)
		r.b.WriteString(" else ")
		r.expr(e.False)
	case *syntax.LambdaExpr:
		r.b.WriteString("lambda")
		if len(e.Params) > 0 {
			r.b.WriteByte(' ')
			r.list(e.Params)
		}
		r.b.WriteString(": ")
		r.expr(e.Body)
	case *syntax.Comprehension:
		open, closing := byte('['), byte(']')
		if e.Curly {
			open, closing = '{', '}'
		}
		r.b.WriteByte(open)
		r.expr(e.Body)
		for _, c := range e.Clauses {
			switch c := c.(type) {
			case *syntax.ForClause:
				r.b.WriteString(" for ")
				r.expr(c.Vars)
				r.b.WriteString(" in ")
				r.expr(c.X)
			case *syntax.IfClause:
				r.b.WriteString(" if ")
				r.expr(c.Cond)
			}
		}
		r.b.WriteByte(closing)
	default:
		r.failed = true
	}
}

func (r *renderer) list(xs []syntax.Expr) {
	for i, x := range xs {
		if i > 0 {
			r.b.WriteString(", ")
		}
		r.expr(x)
	}
}
