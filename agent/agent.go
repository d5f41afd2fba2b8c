package agent

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/m4xw311/drover/config"
	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/llm"
	"github.com/m4xw311/drover/parser"
	"github.com/m4xw311/drover/session"
	"github.com/m4xw311/drover/shell"
	"github.com/m4xw311/drover/workspace"
)

// SystemPrompt is the operating instruction seeded as message zero of every
// session. It teaches the model the tag grammar the parser understands.
const SystemPrompt = `You are drover, a coding assistant running in the user's terminal with access to their project.

To create or overwrite a file, emit:
<write_file path="relative/path.ext">
file content
</write_file>

To run a shell command, emit:
<execute_command>command here</execute_command>

You may emit multiple tags in one reply. All file writes are applied before
any command runs. Results are reported back to you as system messages.
Paths are relative to the project root; never use absolute paths.`

// contextBudget caps how many characters of tool output are folded back
// into the conversation for the next model call.
const contextBudget = 1000

// Callbacks let each interaction mode (terminal REPL, one-shot task)
// decide how agent events reach the user, while the processing logic stays
// shared here.
type Callbacks struct {
	// OnAssistantText receives the human-visible part of a reply: the full
	// text when no intents were found, the stripped remainder otherwise.
	// Not called when stripping leaves nothing.
	OnAssistantText func(text string)
	// OnAssistantChunk receives streamed display fragments when streaming
	// is on. Tag spans are filtered out before they reach this callback.
	OnAssistantChunk func(chunk string)
	// OnFileWrite reports each file-write intent's outcome.
	OnFileWrite func(path string, err error)
	// OnCommand reports each command's outcome. quiet marks read-only
	// listing commands whose output should not be echoed.
	OnCommand func(command string, res *shell.Result, err error, quiet bool)
	// OnWarning reports non-fatal issues such as a failed session save.
	OnWarning func(warning string)
}

// Agent is the session loop core shared by the REPL and one-shot modes.
type Agent struct {
	Config    *config.Config
	Session   *session.Session
	Client    llm.Client
	Workspace *workspace.Workspace
	Executor  *shell.Executor
	Stream    bool
}

// New assembles an agent. The trust gate must already have passed; the
// agent assumes side effects in the workspace are approved.
func New(cfg *config.Config, sess *session.Session, client llm.Client, ws *workspace.Workspace, exec *shell.Executor) *Agent {
	return &Agent{
		Config:    cfg,
		Session:   sess,
		Client:    client,
		Workspace: ws,
		Executor:  exec,
		Stream:    cfg.Stream,
	}
}

// ProcessTurn runs one full cycle: append the user message, call the model,
// execute extracted intents (writes strictly before commands), fold results
// back into the conversation, then commit the raw assistant reply.
//
// Failures of individual writes or commands are local: they are reported
// through callbacks and injected as context, never returned. Only a failed
// model call returns an error, and the appended user message stays in
// history so the user can simply resend.
func (a *Agent) ProcessTurn(ctx context.Context, userInput string, cb Callbacks) error {
	a.Session.AddMessage("user", userInput)

	reply, err := a.callModel(ctx, cb)
	if err != nil {
		return err
	}
	a.Session.AddUsage(reply.Usage)

	a.handleResponse(ctx, reply.Content, cb)

	if err := a.Session.Save(); err != nil && cb.OnWarning != nil {
		cb.OnWarning(fmt.Sprintf("failed to save session: %v", err))
	}
	return nil
}

func (a *Agent) callModel(ctx context.Context, cb Callbacks) (*llm.Reply, error) {
	req := llm.Request{
		Model:       a.Session.Model,
		Messages:    a.Session.Messages,
		Temperature: a.Session.Temperature,
		MaxTokens:   a.Session.MaxTokens,
	}
	if a.Stream && cb.OnAssistantChunk != nil {
		if streamer, ok := a.Client.(llm.Streamer); ok {
			// The live echo gets the same tag-free view Strip produces on
			// the complete text; tag spans never reach the screen.
			filter := parser.NewStreamFilter(cb.OnAssistantChunk)
			reply, err := streamer.ChatStream(ctx, req, filter.Write)
			filter.Flush()
			return reply, err
		}
	}
	return a.Client.Chat(ctx, req)
}

func (a *Agent) handleResponse(ctx context.Context, raw string, cb Callbacks) {
	intents := parser.Parse(raw)

	if !intents.HasIntents() {
		if cb.OnAssistantText != nil {
			cb.OnAssistantText(raw)
		}
		a.Session.AddMessage("assistant", raw)
		return
	}

	if stripped := parser.Strip(raw); stripped != "" && cb.OnAssistantText != nil {
		cb.OnAssistantText(stripped)
	}

	// Writes complete before any command runs; commands may depend on the
	// files the model just asked to create.
	for _, w := range intents.Writes {
		err := a.Workspace.Write(w.Path, w.Content)
		if err == nil {
			a.Session.Log.RecordFileModified(w.Path)
			a.Session.AddMessage("system", fmt.Sprintf("File write succeeded: %s (%d bytes)", w.Path, len(w.Content)))
		} else {
			a.Session.AddMessage("system", fmt.Sprintf("File write failed: %s: %v", w.Path, err))
		}
		if cb.OnFileWrite != nil {
			cb.OnFileWrite(w.Path, err)
		}
	}

	for _, c := range intents.Commands {
		res, err := a.Executor.Execute(ctx, c.Command)
		output := collectOutput(res)
		if err == nil {
			a.Session.Log.RecordCommand(c.Command, output)
			a.Session.AddMessage("system", fmt.Sprintf("Command succeeded: %s\nOutput:\n%s", c.Command, truncate(output, contextBudget)))
		} else {
			a.Session.Log.RecordCommand(c.Command, err.Error())
			a.Session.AddMessage("system", fmt.Sprintf("Command failed: %s\nError: %v", c.Command, err))
		}
		if cb.OnCommand != nil {
			cb.OnCommand(c.Command, res, err, parser.QuietCommand(c.Command))
		}
	}

	// History keeps the model's own text verbatim, tags included; only the
	// terminal display was cleaned.
	a.Session.AddMessage("assistant", raw)
}

// RunTask is the one-shot entry point: exactly one model turn for the given
// instruction. The caller renders the session log summary afterwards.
func (a *Agent) RunTask(ctx context.Context, instruction string, cb Callbacks) error {
	if err := a.ProcessTurn(ctx, instruction, cb); err != nil {
		return errors.Wrapf(err, "task failed")
	}
	return nil
}

func collectOutput(res *shell.Result) string {
	if res == nil {
		return ""
	}
	out := res.Stdout
	if res.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += res.Stderr
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multibyte
	// sequence.
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "\n[output truncated]"
}
