package chat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rendis/codeflow/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAssistant(t *testing.T) *Assistant {
	t.Helper()
	return New(Config{
		Now:  func() time.Time { return fixedNow },
		Pick: func(int) int { return 2 },
	})
}

func TestReply_Categories(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantType string
	}{
		{"greeting", "Hello there", TypeGreeting},
		{"greeting case-insensitive", "  HEY  ", TypeGreeting},
		{"motivation", "I'm stuck and frustrated", TypeMotivation},
		{"help topic", "Explain variables", TypeHelp},
		{"help generic", "please help", TypeHelp},
		{"debugging", "my code has a bug", TypeDebugging},
		{"syntax", "syntax of a function", TypeSyntaxHelp},
		{"coding", "write a program", TypeCoding},
		{"default", "banana", TypeDefault},
		{"error family", "Traceback: NameError: name 'x' is not defined", TypeErrorHelp},
		{"generic error", "I got an exception", TypeErrorHelp},
	}
	a := newTestAssistant(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := a.Reply(context.Background(), tt.message)
			assert.Equal(t, tt.wantType, r.Type)
			assert.NotEmpty(t, r.Message)
			assert.NotNil(t, r.Suggestions)
			assert.Equal(t, "2026-03-01T12:00:00Z", r.Timestamp)
		})
	}
}

func TestReply_ErrorFamilies(t *testing.T) {
	tests := map[string]string{
		"SyntaxError: invalid syntax on line 3":           "SyntaxError",
		"IndentationError: expected an indented block":    "IndentationError",
		"File x, NameError: name 'foo' is not defined":    "NameError",
		"TypeError: unsupported operand type(s)":          "TypeError",
		"IndexError: list index out of range":             "IndexError",
		"ValueError: invalid literal for int()":           "ValueError",
		"AttributeError: 'str' object has no attribute x": "AttributeError",
		"KeyError: 'name' line 4":                         "KeyError",
	}
	a := newTestAssistant(t)
	for msg, family := range tests {
		t.Run(family, func(t *testing.T) {
			r := a.Reply(context.Background(), msg)
			require.Equal(t, TypeErrorHelp, r.Type)
			assert.Contains(t, r.Message, "**"+family+" Detected!**")
			assert.Contains(t, r.Message, "1. ")
			assert.Contains(t, r.Message, "Quick Fix Tips")
			require.NotNil(t, r.CodeExample)
			assert.Contains(t, r.Message, "```starlark\n"+*r.CodeExample+"\n```")
		})
	}
}

func TestReply_ErrorFamilyOrder(t *testing.T) {
	// "indentation" also appears in SyntaxError's solutions but detection is
	// by keywords only, so the earlier family with a hit wins.
	r := newTestAssistant(t).Reply(context.Background(), "error: invalid syntax and bad indentation")
	assert.Contains(t, r.Message, "SyntaxError Detected!")
}

func TestReply_IndicatorWithoutErrorWordFallsThrough(t *testing.T) {
	// "line" is an indicator but no family keyword or generic word matches.
	r := newTestAssistant(t).Reply(context.Background(), "hello from line one")
	assert.Equal(t, TypeGreeting, r.Type)
}

func TestReply_Motivation(t *testing.T) {
	r := newTestAssistant(t).Reply(context.Background(), "coding feels hard")
	assert.Equal(t, motivationalQuotes[2]+motivationTail, r.Message)
}

func TestReply_MotivationRandomDefault(t *testing.T) {
	a := New(Config{})
	r := a.Reply(context.Background(), "motivate me")
	assert.Contains(t, motivationalQuotes, r.Message[:len(r.Message)-len(motivationTail)])
}

func TestReply_HelpTopicSingular(t *testing.T) {
	r := newTestAssistant(t).Reply(context.Background(), "how to write a loop")
	require.Equal(t, TypeHelp, r.Type)
	require.NotNil(t, r.CodeExample)
	assert.Contains(t, *r.CodeExample, "for i in range(5)")
	assert.Contains(t, r.Message, "```starlark\n")
	assert.Contains(t, r.Message, "Tip: Be careful with while loops")
}

func TestReply_SyntaxHelpExample(t *testing.T) {
	r := newTestAssistant(t).Reply(context.Background(), "code syntax")
	require.Equal(t, TypeSyntaxHelp, r.Type)
	require.NotNil(t, r.CodeExample)
	assert.Equal(t, syntaxExample, *r.CodeExample)
}

func TestReply_FAQ(t *testing.T) {
	// The built-in table routes "what is"/"how to" to help first, so the FAQ
	// row is exercised with a table holding only that rule.
	dir := t.TempDir()
	table := `name: chat_topics
engine: expr
variables: [message, faq_keys]
rules:
  - name: faq
    when: 'any(faq_keys, {message contains #})'
    then: faq
fallback: [default]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_topics.yaml"), []byte(table), 0o644))
	set, err := rules.Load(dir)
	require.NoError(t, err)

	a := New(Config{Rules: set})
	r := a.Reply(context.Background(), "What is indentation?")
	assert.Equal(t, TypeFAQ, r.Type)
	assert.Contains(t, r.Message, "Use 4 spaces or 1 tab consistently")

	r = a.Reply(context.Background(), "pizza")
	assert.Equal(t, TypeDefault, r.Type)
}

func TestReply_JSONShape(t *testing.T) {
	r := newTestAssistant(t).Reply(context.Background(), "banana")
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "code_example")
	assert.Nil(t, m["code_example"])
	assert.Len(t, m["suggestions"], 6)
}

func TestFAQKeys(t *testing.T) {
	keys := FAQKeys()
	assert.Len(t, keys, 10)
	assert.Equal(t, "what is python", keys[0])
}
