// Package chat answers student messages about programming: pasted error
// messages first, then greetings, motivation, help topics, coding
// questions and FAQs.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/rules"
)

// Response types.
const (
	TypeErrorHelp  = "error_help"
	TypeGreeting   = "greeting"
	TypeMotivation = "motivation"
	TypeHelp       = "help"
	TypeDebugging  = "debugging"
	TypeSyntaxHelp = "syntax_help"
	TypeCoding     = "coding"
	TypeFAQ        = "faq"
	TypeDefault    = "default"
)

// Response is one assistant reply.
type Response struct {
	Message     string   `json:"message"`
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions"`
	CodeExample *string  `json:"code_example"`
	Timestamp   string   `json:"timestamp"`
}

// Config holds the dependencies of an Assistant. Zero values select the
// built-in topic table, a stderr logger, the wall clock and a random quote.
type Config struct {
	Rules  *rules.Set
	Logger *slog.Logger
	Now    func() time.Time
	Pick   func(n int) int
}

// Assistant is stateless; conversation history is kept by the caller.
type Assistant struct {
	topics *rules.Table
	logger *slog.Logger
	now    func() time.Time
	pick   func(n int) int
}

// New creates an Assistant.
func New(cfg Config) *Assistant {
	set := cfg.Rules
	if set == nil {
		set = rules.MustLoadBuiltin()
	}
	a := &Assistant{
		topics: set.Get(rules.ChatTopics),
		logger: logging.OrDefault(cfg.Logger),
		now:    cfg.Now,
		pick:   cfg.Pick,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.pick == nil {
		a.pick = rand.IntN
	}
	return a
}

// Reply answers message. Matching is case-insensitive and the first
// applicable category wins.
func (a *Assistant) Reply(ctx context.Context, message string) Response {
	msg := strings.ToLower(strings.TrimSpace(message))

	r, ok := detectError(msg)
	if !ok {
		r = a.byTopic(ctx, msg)
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	r.Timestamp = a.now().UTC().Format(time.RFC3339)
	return r
}

// detectError recognises pasted error messages.
func detectError(msg string) (Response, bool) {
	if !containsAny(msg, errorIndicators) {
		return Response{}, false
	}
	for _, fam := range errorFamilies {
		if !containsAny(msg, fam.keywords) {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "🐛 **%s Detected!**\n\n", fam.name)
		b.WriteString("This error typically occurs when:\n")
		for i, s := range fam.solutions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
		fmt.Fprintf(&b, "\n💡 **Example of correct code:**\n```starlark\n%s\n```", fam.example)
		b.WriteString(errorTips)
		return Response{
			Message:     b.String(),
			Type:        TypeErrorHelp,
			CodeExample: &fam.example,
			Suggestions: suggestions[TypeErrorHelp],
		}, true
	}
	if containsAny(msg, genericErrorWords) {
		return Response{
			Message:     genericErrorText,
			Type:        TypeErrorHelp,
			Suggestions: suggestions["error_generic"],
		}, true
	}
	return Response{}, false
}

func (a *Assistant) byTopic(ctx context.Context, msg string) Response {
	topic, _, err := a.topics.First(ctx, map[string]any{"message": msg, "faq_keys": FAQKeys()})
	if err != nil {
		logging.LogWith(ctx, a.logger).Warn("chat topic rules failed", "error", err)
		topic = TypeDefault
	}

	switch topic {
	case TypeGreeting:
		return Response{Message: greetingText, Type: TypeGreeting, Suggestions: suggestions[TypeGreeting]}
	case TypeMotivation:
		quote := motivationalQuotes[a.pick(len(motivationalQuotes))]
		return Response{Message: quote + motivationTail, Type: TypeMotivation, Suggestions: suggestions[TypeMotivation]}
	case TypeHelp:
		return helpReply(msg)
	case TypeCoding:
		return codingReply(msg)
	case TypeFAQ:
		for _, f := range faqs {
			if strings.Contains(msg, f.question) {
				return Response{Message: f.answer, Type: TypeFAQ, Suggestions: suggestions[TypeFAQ]}
			}
		}
	}
	return Response{Message: defaultText, Type: TypeDefault, Suggestions: suggestions[TypeDefault]}
}

func helpReply(msg string) Response {
	for _, t := range helpTopics {
		if strings.Contains(msg, t.name) || strings.Contains(msg, t.name[:len(t.name)-1]) {
			example := t.example
			return Response{
				Message: fmt.Sprintf("%s\n\nHere's an example:\n```starlark\n%s\n```\n\nTip: %s",
					t.explanation, t.example, t.tip),
				Type:        TypeHelp,
				CodeExample: &example,
				Suggestions: suggestions[TypeHelp],
			}
		}
	}
	return Response{Message: helpText, Type: TypeHelp, Suggestions: suggestions["help_generic"]}
}

func codingReply(msg string) Response {
	if containsAny(msg, []string{"error", "bug", "debug"}) {
		return Response{Message: debuggingText, Type: TypeDebugging, Suggestions: suggestions[TypeDebugging]}
	}
	if strings.Contains(msg, "syntax") {
		example := syntaxExample
		return Response{
			Message:     syntaxText,
			Type:        TypeSyntaxHelp,
			CodeExample: &example,
			Suggestions: suggestions[TypeSyntaxHelp],
		}
	}
	return Response{Message: codingText, Type: TypeCoding, Suggestions: suggestions[TypeCoding]}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
