package sandbox

import (
	"testing"

	"github.com/rendis/codeflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestIsDenied(t *testing.T) {
	tests := []struct {
		module string
		denied bool
	}{
		{"os", true},
		{"os.path", true},
		{"//os:lib.star", true},
		{"@urllib//request.star", true},
		{"subprocess", true},
		{"__import__", true},
		{"math", false},
		{"json.star", false},
		{"osmosis", false},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.denied, IsDenied(tt.module))
		})
	}
}

func TestPrecheck_Accepts(t *testing.T) {
	srcs := []string{
		`print("hello")`,
		"x = sorted([3, 1, 2])\nprint(sum(x), max(x), len(x))",
		"def f(n):\n    return [i for i in range(n)]\nprint(f(3))",
		`load("math", "sqrt")`,
		"glob = 1\nos = 2\nprint(glob + os)",
		"def f(n):\n    while n > 0:\n        n -= 1\n    return n\nprint(f(3))",
	}
	for _, src := range srcs {
		assert.Nil(t, precheck(src), src)
	}
}

func TestPrecheck_RefusalInsideWhileBody(t *testing.T) {
	ce := precheck("n = 1\nwhile n:\n    n = hash(\"a\")\n")
	require.NotNil(t, ce)
	assert.Equal(t, schema.ErrCodeDisallowed, ce.Code)
	assert.Equal(t, 3, ce.Line)
}

func TestPrecheck_Refusals(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		code    string
		message string
	}{
		{"syntax", "def f(:\n", schema.ErrCodeParse, "Syntax error:"},
		{"load os", `load("os", "path")`, schema.ErrCodeDisallowed, "Import of module 'os' is not allowed"},
		{"load subprocess", "x = 1\nload(\"subprocess\", \"run\")", schema.ErrCodeDisallowed, "Import of module 'subprocess' is not allowed"},
		{"dunder import", `__import__("os")`, schema.ErrCodeDisallowed, "Use of '__import__' is not allowed"},
		{"hash builtin", `print(hash("a"))`, schema.ErrCodeDisallowed, "Use of builtin 'hash' is not allowed"},
		{"fail builtin", `fail("boom")`, schema.ErrCodeDisallowed, "Use of builtin 'fail' is not allowed"},
		{"dir builtin", `print(dir([]))`, schema.ErrCodeDisallowed, "Use of builtin 'dir' is not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := precheck(tt.src)
			require.NotNil(t, ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestPrecheck_LoadCarriesLine(t *testing.T) {
	ce := precheck("x = 1\nload(\"socket\", \"socket\")")
	require.NotNil(t, ce)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, "socket", ce.Details["module"])
}

func TestAllowedBuiltinsCovered(t *testing.T) {
	// Every allow-listed name resolves either from the universe or from the
	// extras, so nothing on the list is silently undefined.
	for _, name := range AllowedBuiltins {
		_, inExtras := predeclared[name]
		assert.True(t, inExtras || universeHas(name), name)
	}
}

func universeHas(name string) bool {
	return starlark.Universe.Has(name)
}
