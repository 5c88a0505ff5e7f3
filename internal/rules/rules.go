// Package rules loads ordered (predicate, result) tables from YAML and
// evaluates them with the expression engine each table names.
package rules

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rendis/codeflow/internal/expressions"
	"github.com/rendis/codeflow/internal/validation"
	"github.com/rendis/codeflow/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Built-in table names.
const (
	ProblemSteps = "problem_steps"
	StepKinds    = "step_kinds"
	ChatTopics   = "chat_topics"
)

//go:embed tables/*.yaml
var builtin embed.FS

// Rule is one row: when the predicate holds, the row yields Then.
type Rule struct {
	Name        string `yaml:"name" json:"name"`
	When        string `yaml:"when" json:"when"`
	Then        string `yaml:"then" json:"then"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Table is an ordered rule list. Row order is evaluation order.
type Table struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Engine      string   `yaml:"engine" json:"engine"`
	Variables   []string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Rules       []Rule   `yaml:"rules" json:"rules"`
	Fallback    []string `yaml:"fallback,omitempty" json:"fallback,omitempty"`

	engine expressions.Engine
}

// Parse decodes, validates and compiles a table from YAML.
func Parse(v *validation.SchemaValidator, name string, data []byte) (*Table, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "rule table %s: invalid YAML", name).WithCause(err)
	}
	if err := v.ValidateRuleTable(doc); err != nil {
		return nil, fmt.Errorf("rule table %s: %w", name, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "rule table %s: decode", name).WithCause(err)
	}
	if t.Name == "" {
		t.Name = name
	}

	engine, ok, err := expressions.New(t.Engine, t.Variables...)
	if err != nil {
		return nil, fmt.Errorf("rule table %s: %w", name, err)
	}
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "rule table %s: unknown engine %q", name, t.Engine)
	}
	t.engine = engine

	seen := make(map[string]struct{}, len(t.Rules))
	for i, r := range t.Rules {
		if _, dup := seen[r.Name]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "rule table %s: duplicate rule name %q", name, r.Name)
		}
		seen[r.Name] = struct{}{}
		if err := engine.Compile(r.When); err != nil {
			return nil, fmt.Errorf("rule table %s: rules[%d] (%s): %w", name, i, r.Name, err)
		}
	}
	return &t, nil
}

// Match returns the Then of every row whose predicate holds, in row order.
// When no row matches, the table's fallback is returned.
func (t *Table) Match(ctx context.Context, data map[string]any) ([]string, error) {
	var out []string
	for _, r := range t.Rules {
		ok, err := t.holds(ctx, r, data)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r.Then)
		}
	}
	if len(out) == 0 {
		out = append(out, t.Fallback...)
	}
	return out, nil
}

// First returns the Then of the first row whose predicate holds, or the
// first fallback entry. ok is false when neither exists.
func (t *Table) First(ctx context.Context, data map[string]any) (string, bool, error) {
	for _, r := range t.Rules {
		ok, err := t.holds(ctx, r, data)
		if err != nil {
			return "", false, err
		}
		if ok {
			return r.Then, true, nil
		}
	}
	if len(t.Fallback) > 0 {
		return t.Fallback[0], true, nil
	}
	return "", false, nil
}

func (t *Table) holds(ctx context.Context, r Rule, data map[string]any) (bool, error) {
	out, err := t.engine.Evaluate(ctx, r.When, data)
	if err != nil {
		return false, fmt.Errorf("rule %s.%s: %w", t.Name, r.Name, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"rule %s.%s: predicate returned %T, want bool", t.Name, r.Name, out)
	}
	return b, nil
}

// Set holds the tables used by the synthesizer and the chat assistant.
type Set struct {
	tables map[string]*Table
}

// Get returns the named table or nil.
func (s *Set) Get(name string) *Table {
	return s.tables[name]
}

// Names lists loaded tables.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	return names
}

// Load reads the built-in tables, replacing each with <dir>/<name>.yaml when
// dir is non-empty and the file exists.
func Load(dir string) (*Set, error) {
	v, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	set := &Set{tables: make(map[string]*Table)}
	for _, name := range []string{ProblemSteps, StepKinds, ChatTopics} {
		data, err := readTable(dir, name)
		if err != nil {
			return nil, err
		}
		t, err := Parse(v, name, data)
		if err != nil {
			return nil, err
		}
		set.tables[name] = t
	}
	return set, nil
}

// MustLoadBuiltin loads the embedded tables and panics on failure.
func MustLoadBuiltin() *Set {
	s, err := Load("")
	if err != nil {
		panic(err)
	}
	return s
}

func readTable(dir, name string) ([]byte, error) {
	file := name + ".yaml"
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read rule table %s: %w", file, err)
		}
	}
	data, err := builtin.ReadFile("tables/" + file)
	if err != nil {
		return nil, fmt.Errorf("read builtin rule table %s: %w", file, err)
	}
	return data, nil
}
