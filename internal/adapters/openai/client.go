package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
)

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
	return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

func (c *Client) Available() bool { return strings.TrimSpace(c.key) != "" }

// Highlights produces a one-or-two sentence summary line for the top of a
// report. Input is the bucket breakdown; output is plain text suitable for
// Slack. Callers treat any error as "no highlights".
func (c *Client) Highlights(ctx context.Context, breakdown map[string][]string) (string, error) {
	if !c.Available() {
		return "", errors.New("openai: missing key")
	}
	userContent := ""
	if b, err := json.Marshal(breakdown); err == nil {
		userContent = string(b)
	}
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You summarize a developer's weekly activity report. Given issue titles grouped by bucket (completed, started, updated, other), write one or two plain sentences highlighting the week. No markdown, no lists, no preamble."),
			openai.UserMessage(userContent),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
