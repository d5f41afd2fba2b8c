package llm

import (
	"context"

	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/session"
)

// Request carries everything one model call needs: the full message
// sequence, the model identifier, and the sampling parameters.
type Request struct {
	Model       string
	Messages    []session.Message
	Temperature float64
	MaxTokens   int
}

// Reply is one completed model response.
type Reply struct {
	Content string
	Usage   session.Usage
}

// Client is the interface for interacting with a remote model endpoint.
type Client interface {
	Chat(ctx context.Context, req Request) (*Reply, error)
}

// Streamer is implemented by clients that can deliver the reply
// incrementally. The final Reply carries the complete content and the
// call's usage, same as Chat.
type Streamer interface {
	ChatStream(ctx context.Context, req Request, onDelta func(chunk string)) (*Reply, error)
}

// MockClient replays scripted replies in order. Used in tests and as the
// "mock" provider.
type MockClient struct {
	Replies  []string
	Err      error
	Requests []Request

	next int
}

func (m *MockClient) Chat(ctx context.Context, req Request) (*Reply, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, errors.WrapKind(errors.ErrRemoteCallFailed, m.Err, "mock failure")
	}
	if m.next >= len(m.Replies) {
		return &Reply{Content: "I have nothing further to add."}, nil
	}
	reply := m.Replies[m.next]
	m.next++
	return &Reply{
		Content: reply,
		Usage: session.Usage{
			PromptTokens:     len(req.Messages),
			CompletionTokens: 1,
			TotalTokens:      len(req.Messages) + 1,
		},
	}, nil
}
