package llm

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/session"
)

// OpenAIClient talks to any OpenAI-chat-completions-compatible endpoint.
// This is the reference backend: the wire contract (messages, temperature,
// max_tokens, usage counters, streaming deltas) is what the other backends
// are mapped onto.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client for the given credential and optional
// base URL override. The credential comes from the config store, never from
// ambient environment inspection inside this package.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.NewKind(errors.ErrSetupFailed, "no API key configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c}, nil
}

// Chat sends a non-streaming chat completion request.
func (o *OpenAIClient) Chat(ctx context.Context, req Request) (*Reply, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "chat completion request failed")
	}
	reply := &Reply{
		Usage: session.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		reply.Content = resp.Choices[0].Message.Content
	}
	return reply, nil
}

// ChatStream sends a streaming request, invoking onDelta for each content
// chunk. The returned Reply holds the accumulated content and the usage
// reported by the terminal chunk.
func (o *OpenAIClient) ChatStream(ctx context.Context, req Request, onDelta func(string)) (*Reply, error) {
	params := o.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "streaming chat completion failed")
	}

	reply := &Reply{
		Usage: session.Usage{
			PromptTokens:     int(acc.Usage.PromptTokens),
			CompletionTokens: int(acc.Usage.CompletionTokens),
			TotalTokens:      int(acc.Usage.TotalTokens),
		},
	}
	if len(acc.Choices) > 0 {
		reply.Content = acc.Choices[0].Message.Content
	}
	return reply, nil
}

func (o *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    convertMessagesToOpenAI(req.Messages),
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}
}

func convertMessagesToOpenAI(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case "assistant":
			chatMessages = append(chatMessages, openai.AssistantMessage(msg.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}
