package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/session"
)

// BedrockClient runs Anthropic models through AWS Bedrock. Credentials come
// from the standard AWS chain; the config store's apiKey is not used for
// this backend.
type BedrockClient struct {
	client *bedrockruntime.Client
}

// NewBedrockClient creates a client from the ambient AWS configuration.
func NewBedrockClient(ctx context.Context) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrSetupFailed, err, "failed to load AWS config")
	}
	return &BedrockClient{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []bedrockContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error any `json:"error"`
}

// Chat invokes the model with the Anthropic-on-Bedrock payload format.
func (b *BedrockClient) Chat(ctx context.Context, req Request) (*Reply, error) {
	payload := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
	}
	for i, msg := range req.Messages {
		switch msg.Role {
		case "system":
			if i == 0 {
				payload.System = msg.Content
				continue
			}
			payload.Messages = append(payload.Messages, bedrockMessage{
				Role:    "user",
				Content: []bedrockContentBlock{{Type: "text", Text: msg.Content}},
			})
		case "assistant":
			if msg.Content == "" {
				continue
			}
			payload.Messages = append(payload.Messages, bedrockMessage{
				Role:    "assistant",
				Content: []bedrockContentBlock{{Type: "text", Text: msg.Content}},
			})
		default:
			payload.Messages = append(payload.Messages, bedrockMessage{
				Role:    "user",
				Content: []bedrockContentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize Bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "failed to invoke Bedrock model")
	}

	var out bedrockResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, err, "failed to parse Bedrock response")
	}
	if out.Error != nil {
		return nil, errors.NewKind(errors.ErrRemoteCallFailed, "Bedrock API error: %v", out.Error)
	}

	var content string
	for _, block := range out.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return &Reply{
		Content: content,
		Usage: session.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
	}, nil
}
