// Package terminal implements the interactive REPL mode. The one-shot task
// mode in cmd/drover shares the same agent core; this package only decides
// how events and slash commands reach the screen.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/drover/agent"
	"github.com/m4xw311/drover/models"
	"github.com/m4xw311/drover/shell"
	"github.com/m4xw311/drover/ui"
)

// Terminal drives the interactive session loop.
type Terminal struct {
	agent    *agent.Agent
	registry *models.Registry
	ui       *ui.Renderer
	in       *bufio.Scanner
}

// New creates a terminal bound to an input stream; tests feed it a pipe.
func New(a *agent.Agent, registry *models.Registry, r *ui.Renderer, in io.Reader) *Terminal {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Terminal{agent: a, registry: registry, ui: r, in: scanner}
}

// Run starts the REPL. It returns when the user exits, input ends, or the
// context is cancelled; all three are graceful.
func (t *Terminal) Run(ctx context.Context) error {
	t.welcome()

	// Input is read on its own goroutine so a cancelled context aborts the
	// wait itself instead of lingering until the next line of input. The
	// goroutine owns the scanner; its terminal error arrives on scanErr.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		for t.in.Scan() {
			select {
			case lines <- t.in.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- t.in.Err()
		close(lines)
	}()

loop:
	for {
		t.ui.Plain("")
		t.ui.Prompt("You:")
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				// EOF or forced input closure ends the session gracefully.
				break loop
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if strings.HasPrefix(input, "/") {
				if quit := t.dispatchSlash(input); quit {
					break loop
				}
				continue
			}
			if err := t.agent.ProcessTurn(ctx, input, t.callbacks()); err != nil {
				// The user message stays in history; retry is manual.
				t.ui.Error("Error: %v", err)
			}
		}
	}

	t.ui.Info("Goodbye.")
	select {
	case err := <-scanErr:
		return err
	default:
		// The reader is still blocked; there is no input error to report.
		return nil
	}
}

func (t *Terminal) welcome() {
	t.ui.Banner("drover", "model: "+t.agent.Session.Model)
	t.ui.Info("Type /help for commands, /exit to quit.")
}

// dispatchSlash handles one slash command. Returns true when the session
// should end.
func (t *Terminal) dispatchSlash(input string) bool {
	verb, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch verb {
	case "exit", "quit":
		return true
	case "clear":
		t.ui.ClearScreen()
		t.welcome()
	case "read":
		t.readFile(arg)
	case "search":
		t.search(arg)
	case "tree":
		t.tree("", 0)
	case "files":
		t.files()
	case "model":
		t.model(arg)
	case "config":
		t.configCmd(arg)
	case "reset":
		t.agent.Session.Reset()
		t.ui.Info("Conversation reset to the initial system message.")
	case "help":
		t.help()
	default:
		t.ui.Error("Unknown command '/%s'. Type /help for the list.", verb)
	}
	return false
}

func (t *Terminal) readFile(path string) {
	if path == "" {
		t.ui.Error("Usage: /read <path>")
		return
	}
	content, err := t.agent.Workspace.Read(path)
	if err != nil {
		t.ui.Error("%v", err)
		return
	}
	t.agent.Session.AddMessage("system", fmt.Sprintf("Content of %s:\n%s", path, content))
	t.ui.Success("Added %s to the conversation (%d bytes).", path, len(content))
}

func (t *Terminal) search(text string) {
	if text == "" {
		t.ui.Error("Usage: /search <text>")
		return
	}
	results, err := t.agent.Workspace.SearchInFiles("**/*", text, false)
	if err != nil {
		t.ui.Error("%v", err)
		return
	}
	if len(results) == 0 {
		t.ui.Info("No matches for %q.", text)
		return
	}
	for _, fm := range results {
		for _, m := range fm.Matches {
			t.ui.Plain("%s:%d:%d: %s", fm.Path, m.Line, m.Column, strings.TrimSpace(m.Content))
		}
	}
}

func (t *Terminal) tree(dir string, depth int) {
	entries, err := t.agent.Workspace.List(dir)
	if err != nil {
		t.ui.Error("%v", err)
		return
	}
	for _, e := range entries {
		if e.IsDirectory && skipDir(e.Name) {
			continue
		}
		indent := strings.Repeat("  ", depth)
		if e.IsDirectory {
			t.ui.Plain("%s%s/", indent, e.Name)
			t.tree(e.Path, depth+1)
		} else {
			t.ui.Plain("%s%s", indent, e.Name)
		}
	}
}

func skipDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg", "node_modules", "dist", "build", "target", ".drover":
		return true
	}
	return false
}

func (t *Terminal) files() {
	paths, err := t.agent.Workspace.FindFiles("**/*", nil)
	if err != nil {
		t.ui.Error("%v", err)
		return
	}
	for _, p := range paths {
		t.ui.Plain("%s", p)
	}
	t.ui.Info("%d files.", len(paths))
}

func (t *Terminal) model(arg string) {
	if arg == "" {
		t.ui.Info("Current model: %s", t.agent.Session.Model)
		for _, m := range t.registry.List() {
			t.ui.Plain("  %-28s %s", m.ID, m.Name)
		}
		return
	}
	m, known := t.registry.Resolve(arg)
	t.agent.Session.SetModel(m.ID)
	if known {
		t.ui.Success("Switched to %s (%s).", m.Name, m.ID)
	} else {
		t.ui.Info("Unknown model '%s'; passing it through as-is.", arg)
	}
}

// configCmd shows or updates one config key. Updates persist immediately
// and live session values that mirror a key follow the change.
func (t *Terminal) configCmd(arg string) {
	if arg == "" {
		t.ui.Error("Usage: /config <key> [value]")
		return
	}
	key, value, _ := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)

	if value == "" {
		v, err := t.agent.Config.Get(key)
		if err != nil {
			t.ui.Error("%v", err)
			return
		}
		t.ui.Plain("%s = %s", key, v)
		return
	}

	if err := t.agent.Config.Set(key, value); err != nil {
		t.ui.Error("%v", err)
		return
	}
	if err := t.agent.Config.Save(); err != nil {
		t.ui.Error("%v", err)
		return
	}
	switch key {
	case "temperature":
		t.agent.Session.Temperature = t.agent.Config.Temperature
	case "maxTokens":
		t.agent.Session.MaxTokens = t.agent.Config.MaxTokens
	case "stream":
		t.agent.Stream = t.agent.Config.Stream
	}
	t.ui.Success("Set %s = %s.", key, value)
}

func (t *Terminal) help() {
	t.ui.Plain(`Commands:
  /read <path>     add a file's content to the conversation
  /search <text>   search the workspace for text
  /tree            show the workspace tree
  /files           list workspace files
  /model [id]      show or switch the model
  /config <key> [value]  show or update a config value
  /reset           drop history back to the system message
  /clear           clear the screen
  /exit, /quit     leave`)
}

// callbacks routes agent events to the terminal.
func (t *Terminal) callbacks() agent.Callbacks {
	return agent.Callbacks{
		OnAssistantText: func(text string) {
			if t.agent.Stream {
				// Chunks already went to the screen; just terminate the line.
				t.ui.Plain("")
				return
			}
			t.ui.Assistant(text)
		},
		OnAssistantChunk: func(chunk string) {
			t.ui.AssistantChunk(chunk)
		},
		OnFileWrite: func(path string, err error) {
			if err != nil {
				t.ui.Error("write %s: %v", path, err)
				return
			}
			t.ui.Success("wrote %s", path)
		},
		OnCommand: func(command string, res *shell.Result, err error, quiet bool) {
			t.ui.Info("$ %s", command)
			if err != nil {
				t.ui.Error("%v", err)
				return
			}
			if quiet {
				return
			}
			if res != nil && strings.TrimSpace(res.Stdout) != "" {
				t.ui.Plain("%s", strings.TrimRight(res.Stdout, "\n"))
			}
			if res != nil && res.Truncated {
				t.ui.Info("(output truncated)")
			}
		},
		OnWarning: func(warning string) {
			t.ui.Error("Warning: %s", warning)
		},
	}
}
