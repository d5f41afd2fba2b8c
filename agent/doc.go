// Package agent contains the session loop shared by drover's two entry
// points: the interactive terminal (agent/terminal) and the one-shot task
// mode in cmd/drover.
//
// One turn runs strictly sequentially: the user message is appended to the
// session, the model is called with the full message sequence, and the raw
// reply is handed to the tag parser. Extracted file writes execute before
// any extracted command, and both execute before the assistant reply is
// committed to history, so commands always observe the files the model just
// asked to create and the history always ends with the model's own verbatim
// text.
//
// Per-operation failures (a rejected write, a non-zero exit, an unreachable
// endpoint) never unwind past the loop. Write and command outcomes are
// reported through Callbacks and injected back into the conversation as
// system messages, truncated to a fixed context budget, so the model can
// react on its next turn. Only a failed model call is returned, and in that
// case the already-appended user message stays in history; the user resends
// manually.
//
// The Callbacks structure lets each interaction mode decide how events
// reach the user while the processing logic stays here:
//
//	cb := agent.Callbacks{
//	    OnAssistantText: func(text string) { ... },
//	    OnFileWrite:     func(path string, err error) { ... },
//	    OnCommand:       func(cmd string, res *shell.Result, err error, quiet bool) { ... },
//	}
//	err := a.ProcessTurn(ctx, input, cb)
//
// The agent assumes the trust gate has already passed; it never re-checks
// workspace trust per operation.
package agent
