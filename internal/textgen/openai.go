package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultOpenAIModel = "gpt-4.1-nano"
	defaultOpenAIBase  = "https://api.openai.com/v1"
)

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg Config) *OpenAI {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(
		option.WithBaseURL(base),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	)
	return &OpenAI{client: &client, model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Respond(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(req)),
		},
		MaxCompletionTokens: openai.Opt(int64(maxReplyTokens)),
		Temperature:         openai.Opt(temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai request failed (status=%d): %s", apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return Clean(resp.Choices[0].Message.Content)
}
