package llm

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/session"
)

// GeminiClient is the Google Gemini backend.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a client for the given credential.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.NewKind(errors.ErrSetupFailed, "no API key configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.WrapKind(errors.ErrSetupFailed, err, "failed to create genai client")
	}
	return &GeminiClient{client: client}, nil
}

// Chat sends a chat request to the Gemini API.
func (g *GeminiClient) Chat(ctx context.Context, req Request) (*Reply, error) {
	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetMaxOutputTokens(int32(req.MaxTokens))

	history, systemPrompt := convertMessagesToGemini(req.Messages)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	if len(history) == 0 {
		return nil, errors.New("no messages to send")
	}

	// The last message is the new prompt; the rest is history.
	last := history[len(history)-1]
	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "gemini request failed")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.NewKind(errors.ErrRemoteCallFailed, "received an empty response from Gemini")
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content += string(text)
		}
	}

	reply := &Reply{Content: content}
	if resp.UsageMetadata != nil {
		reply.Usage = session.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return reply, nil
}

// convertMessagesToGemini maps the message log onto Gemini's content
// format. The leading system message becomes the system instruction; later
// system-role injections travel as user turns.
func convertMessagesToGemini(messages []session.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemPrompt string

	for i, msg := range messages {
		role := "user"
		switch msg.Role {
		case "system":
			if i == 0 {
				systemPrompt = msg.Content
				continue
			}
		case "assistant":
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents, systemPrompt
}
