package agent

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/drover/config"
	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/llm"
	"github.com/m4xw311/drover/session"
	"github.com/m4xw311/drover/shell"
	"github.com/m4xw311/drover/workspace"
)

func newTestAgent(t *testing.T, mock *llm.MockClient) *Agent {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	ws, err := workspace.New(dir)
	require.NoError(t, err)

	sess, err := session.New("test", SystemPrompt, "mock-model", 0.5, 1024)
	require.NoError(t, err)

	cfg := &config.Config{Temperature: 0.5, MaxTokens: 1024}
	return New(cfg, sess, mock, ws, shell.NewExecutor(dir))
}

func TestPlainReplyKeepsRawAndHasNoSideEffects(t *testing.T) {
	raw := "Here is an explanation with no actions."
	mock := &llm.MockClient{Replies: []string{raw}}
	a := newTestAgent(t, mock)

	var shown []string
	err := a.ProcessTurn(context.Background(), "explain", Callbacks{
		OnAssistantText: func(text string) { shown = append(shown, text) },
	})
	require.NoError(t, err)

	msgs := a.Session.Messages
	require.Len(t, msgs, 3) // system, user, assistant
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, raw, msgs[2].Content)
	assert.Equal(t, []string{raw}, shown)

	assert.Empty(t, a.Session.Log.FilesModified())
	assert.Empty(t, a.Session.Log.Commands())
}

func TestWritesCompleteBeforeCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell commands")
	}
	reply := `Setting up.
<write_file path="data.txt">ordered-content</write_file>
<execute_command>cat data.txt</execute_command>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	var commandOutput string
	err := a.ProcessTurn(context.Background(), "do it", Callbacks{
		OnCommand: func(command string, res *shell.Result, err error, quiet bool) {
			require.NoError(t, err)
			commandOutput = res.Stdout
		},
	})
	require.NoError(t, err)

	// The command observed the file the model just asked to create.
	assert.Equal(t, "ordered-content", commandOutput)
	assert.Equal(t, []string{"data.txt"}, a.Session.Log.FilesModified())

	// History keeps the raw reply, tags included.
	last := a.Session.Messages[len(a.Session.Messages)-1]
	assert.Equal(t, "assistant", last.Role)
	assert.Equal(t, reply, last.Content)
}

func TestStrippedTextIsDisplayed(t *testing.T) {
	reply := `I created the file.
<write_file path="x.txt">x</write_file>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	var shown []string
	err := a.ProcessTurn(context.Background(), "go", Callbacks{
		OnAssistantText: func(text string) { shown = append(shown, text) },
	})
	require.NoError(t, err)

	require.Len(t, shown, 1)
	assert.Equal(t, "I created the file.", shown[0])
}

func TestAllTagsRepliesShowNothing(t *testing.T) {
	reply := `<write_file path="x.txt">x</write_file>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	called := false
	err := a.ProcessTurn(context.Background(), "go", Callbacks{
		OnAssistantText: func(string) { called = true },
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestModelFailureLeavesUserMessageInHistory(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("endpoint unreachable")}
	a := newTestAgent(t, mock)

	err := a.ProcessTurn(context.Background(), "hello", Callbacks{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRemoteCallFailed))

	msgs := a.Session.Messages
	require.Len(t, msgs, 2) // system + the user message, kept for manual retry
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestCommandFailureIsLocal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell commands")
	}
	reply := `<execute_command>false</execute_command>
<execute_command>echo still-running</execute_command>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	var outcomes []error
	err := a.ProcessTurn(context.Background(), "go", Callbacks{
		OnCommand: func(command string, res *shell.Result, err error, quiet bool) {
			outcomes = append(outcomes, err)
		},
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0])
	assert.NoError(t, outcomes[1])

	// Both outcomes were folded back as context for the next call.
	var injected []string
	for _, m := range a.Session.Messages {
		if m.Role == "system" && m.Content != SystemPrompt {
			injected = append(injected, m.Content)
		}
	}
	require.Len(t, injected, 2)
	assert.Contains(t, injected[0], "Command failed: false")
	assert.Contains(t, injected[1], "still-running")
}

func TestWriteFailureIsReportedAndLoopContinues(t *testing.T) {
	reply := `<write_file path="../escape.txt">nope</write_file>
<write_file path="ok.txt">fine</write_file>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	var writeErrs []error
	err := a.ProcessTurn(context.Background(), "go", Callbacks{
		OnFileWrite: func(path string, err error) { writeErrs = append(writeErrs, err) },
	})
	require.NoError(t, err)

	require.Len(t, writeErrs, 2)
	assert.True(t, errors.Is(writeErrs[0], errors.ErrAccessDenied))
	assert.NoError(t, writeErrs[1])
	assert.Equal(t, []string{"ok.txt"}, a.Session.Log.FilesModified())
}

func TestCommandOutputTruncatedToContextBudget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell commands")
	}
	reply := `<execute_command>head -c 5000 /dev/zero | tr '\0' 'x'</execute_command>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	err := a.ProcessTurn(context.Background(), "go", Callbacks{})
	require.NoError(t, err)

	var injected string
	for _, m := range a.Session.Messages {
		if m.Role == "system" && strings.HasPrefix(m.Content, "Command succeeded") {
			injected = m.Content
		}
	}
	require.NotEmpty(t, injected)
	assert.Contains(t, injected, "[output truncated]")
	assert.Less(t, len(injected), 1200)
}

func TestUsageAccumulatesAcrossTurns(t *testing.T) {
	mock := &llm.MockClient{Replies: []string{"one", "two"}}
	a := newTestAgent(t, mock)

	require.NoError(t, a.ProcessTurn(context.Background(), "first", Callbacks{}))
	require.NoError(t, a.ProcessTurn(context.Background(), "second", Callbacks{}))

	assert.Equal(t, 2, a.Session.Usage.CompletionTokens)
	assert.NotZero(t, a.Session.Usage.TotalTokens)
}

func TestRunTaskRecordsSummary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell commands")
	}
	reply := `<write_file path="hello.txt">hi</write_file>
<execute_command>echo done</execute_command>`
	mock := &llm.MockClient{Replies: []string{reply}}
	a := newTestAgent(t, mock)

	require.NoError(t, a.RunTask(context.Background(), "make hello", Callbacks{}))

	assert.Equal(t, []string{"hello.txt"}, a.Session.Log.FilesModified())
	cmds := a.Session.Log.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "echo done", cmds[0].Command)
}

// chunkedStreamer delivers the mock's scripted reply through the streaming
// path in fixed-size fragments.
type chunkedStreamer struct {
	llm.MockClient
	chunkSize int
}

func (s *chunkedStreamer) ChatStream(ctx context.Context, req llm.Request, onDelta func(string)) (*llm.Reply, error) {
	reply, err := s.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(reply.Content); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(reply.Content) {
			end = len(reply.Content)
		}
		onDelta(reply.Content[i:end])
	}
	return reply, nil
}

func TestStreamingEchoIsTagFree(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ws, err := workspace.New(dir)
	require.NoError(t, err)
	sess, err := session.New("test", SystemPrompt, "mock-model", 0.5, 1024)
	require.NoError(t, err)

	raw := "Writing now.\n<write_file path=\"out.txt\">streamed</write_file>\nDone."
	client := &chunkedStreamer{chunkSize: 3}
	client.Replies = []string{raw}

	cfg := &config.Config{Temperature: 0.5, MaxTokens: 1024, Stream: true}
	a := New(cfg, sess, client, ws, shell.NewExecutor(dir))

	var echoed strings.Builder
	err = a.ProcessTurn(context.Background(), "write it", Callbacks{
		OnAssistantChunk: func(chunk string) { echoed.WriteString(chunk) },
	})
	require.NoError(t, err)

	// The live echo shows only what stripping leaves over.
	assert.NotContains(t, echoed.String(), "<write_file")
	assert.NotContains(t, echoed.String(), "</write_file")
	assert.Contains(t, echoed.String(), "Writing now.")
	assert.Contains(t, echoed.String(), "Done.")

	content, err := ws.Read("out.txt")
	require.NoError(t, err)
	assert.Equal(t, "streamed", content)

	// History keeps the raw reply, tags included.
	last := a.Session.Messages[len(a.Session.Messages)-1]
	assert.Equal(t, "assistant", last.Role)
	assert.Contains(t, last.Content, "<write_file")
}

func TestTruncateCutsAtRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", contextBudget)
	out := truncate(s, contextBudget)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "[output truncated]"))
	assert.LessOrEqual(t, len(out), contextBudget+len("\n[output truncated]"))
}
