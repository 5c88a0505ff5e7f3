package sandbox

import (
	"fmt"
	"strings"

	"github.com/rendis/codeflow/internal/source"
	"github.com/rendis/codeflow/pkg/schema"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DeniedModules are module names whose load is refused before execution.
var DeniedModules = []string{
	"os", "sys", "subprocess", "shutil", "glob", "tempfile", "pickle", "marshal",
	"shelve", "dbm", "sqlite3", "socket", "urllib", "http", "ftplib", "smtplib",
	"threading", "multiprocessing", "asyncio", "ctypes", "importlib", "__import__",
}

var deniedSet = func() map[string]bool {
	m := make(map[string]bool, len(DeniedModules))
	for _, name := range DeniedModules {
		m[name] = true
	}
	return m
}()

// moduleRoot reduces a load path such as "os.path", "//os:lib.star" or
// "@urllib//request.star" to its first component.
func moduleRoot(module string) string {
	m := strings.TrimLeft(module, "@/")
	m = strings.TrimSuffix(m, ".star")
	if i := strings.IndexAny(m, "./:"); i >= 0 {
		m = m[:i]
	}
	return m
}

// IsDenied reports whether loading module is refused.
func IsDenied(module string) bool {
	return deniedSet[module] || deniedSet[moduleRoot(module)]
}

// precheck parses src and refuses it when it cannot be parsed, loads a denied
// module, or refers to a builtin outside the allow-list. A fault inside the
// check refuses the program with INTERNAL_ERROR.
func precheck(src string) (refusal *schema.CodeflowError) {
	defer func() {
		if r := recover(); r != nil {
			refusal = schema.NewErrorf(schema.ErrCodeInternal, "internal error: %v", r)
		}
	}()
	return checkSource(src)
}

func checkSource(src string) *schema.CodeflowError {
	f, err := source.Parse(src)
	if err != nil {
		ce := source.ToCodeflowError(err)
		ce.Message = fmt.Sprintf("Syntax error: %s", ce.Message)
		return ce
	}

	var refusal *schema.CodeflowError
	source.Walk(f, func(n syntax.Node) bool {
		if refusal != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.LoadStmt:
			module, _ := n.Module.Value.(string)
			if IsDenied(module) {
				refusal = schema.NewErrorf(schema.ErrCodeDisallowed,
					"Import of module '%s' is not allowed", module).
					WithLine(source.Line(n)).
					WithDetails(map[string]any{"module": module})
			}
		case *syntax.Ident:
			if n.Name == "__import__" {
				refusal = schema.NewErrorf(schema.ErrCodeDisallowed,
					"Use of '%s' is not allowed", n.Name).WithLine(source.Line(n))
			}
		}
		return true
	})
	if refusal != nil {
		return refusal
	}

	// Universe builtins cannot be removed from a thread, so references to the
	// ones outside the allow-list are refused here. Resolution errors such as
	// undefined names are left for the interpreter to report.
	_ = resolve.File(f, predeclared.Has, starlark.Universe.Has)
	source.Walk(f, func(n syntax.Node) bool {
		if refusal != nil {
			return false
		}
		id, ok := n.(*syntax.Ident)
		if !ok {
			return true
		}
		if b, ok := id.Binding.(*resolve.Binding); ok && b.Scope == resolve.Universal && !allowed[id.Name] {
			refusal = schema.NewErrorf(schema.ErrCodeDisallowed,
				"Use of builtin '%s' is not allowed", id.Name).WithLine(source.Line(id))
		}
		return true
	})
	return refusal
}
