package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/session"
)

// AnthropicClient is the native Anthropic messages backend. System messages
// become the system prompt; tool-result context messages travel as ordinary
// user turns since intents arrive as tagged text, not API tool calls.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a client for the given credential.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.NewKind(errors.ErrSetupFailed, "no API key configured")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client}, nil
}

// Chat sends a chat request to the Anthropic API.
func (a *AnthropicClient) Chat(ctx context.Context, req Request) (*Reply, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropic(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages:    anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "anthropic message request failed")
	}

	var content string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}
	return &Reply{
		Content: content,
		Usage: session.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// convertMessagesToAnthropic maps the message log onto Anthropic's
// alternating format. The leading system message becomes the system prompt;
// later system-role context injections are folded in as user turns so the
// model still sees them.
func convertMessagesToAnthropic(messages []session.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for i, msg := range messages {
		switch msg.Role {
		case "system":
			if i == 0 {
				systemPrompt = msg.Content
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			if msg.Content == "" {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: msg.Content},
				}},
			})
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out, systemPrompt
}
