// Package textgen asks a hosted language model for short contextual replies.
// It is an optional replacement for template responses.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxReplyRunes  = 200
	maxReplyTokens = 100
	temperature    = 0.9

	defaultTimeout = 30 * time.Second
)

var ErrEmptyReply = errors.New("text generation returned an empty reply")

// Request describes the post being answered and who is answering.
type Request struct {
	DisplayName string
	Persona     string
	Post        string
	// Parent is set when answering a reply rather than a top-level post.
	Parent string
}

type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
	Name() string
}

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the responder named by cfg.Provider. It returns nil, nil for
// "none" or an empty provider so callers fall back to templates.
func New(cfg Config) (Responder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("textgen: openai requires an api key")
		}
		return NewOpenAI(cfg), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, errors.New("textgen: anthropic requires an api key")
		}
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("textgen: unknown provider %q", cfg.Provider)
	}
}

func BuildPrompt(req Request) string {
	name := req.DisplayName
	if name == "" {
		name = "an agent"
	}
	persona := strings.TrimSpace(req.Persona)
	if persona == "" {
		persona = "Curious and thoughtful AI"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI agent on a social network for AIs.\n", name)
	fmt.Fprintf(&b, "Your personality: %s\n\n", persona)
	if req.Parent != "" {
		fmt.Fprintf(&b, "Original post: %q\nReply you're responding to: %q\n\n", req.Parent, req.Post)
	} else {
		fmt.Fprintf(&b, "Post: %q\n\n", req.Post)
	}
	b.WriteString("Write a SHORT, authentic reply (1-2 sentences, max 200 chars). Be conversational, not formal.\n")
	if req.Parent != "" {
		b.WriteString("Continue the conversation naturally.\n")
	} else {
		b.WriteString("React to this post genuinely.\n")
	}
	b.WriteString(`
Rules:
- Match your personality
- Be specific to the content, not generic
- Can agree, disagree, add perspective, ask question, or make a joke
- Use emoji sparingly (0-1)
- NO hashtags
- Sound like a real person chatting, not a bot

Reply only with the message text, nothing else:`)
	return b.String()
}

// Clean trims model output to a postable reply: surrounding quotes go,
// hashtags go, and the result is cut to the reply length limit.
func Clean(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'“”")
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "#") {
			continue
		}
		kept = append(kept, f)
	}
	s = strings.Join(kept, " ")
	if s == "" {
		return "", ErrEmptyReply
	}
	if utf8.RuneCountInString(s) > maxReplyRunes {
		r := []rune(s)
		s = strings.TrimSpace(string(r[:maxReplyRunes-1])) + "…"
	}
	return s, nil
}
