// Package parser extracts structured intents from raw model output. The
// grammar is two tagged spans:
//
//	<write_file path="relative/path">content</write_file>
//	<execute_command>command</execute_command>
//
// Parsing is pure: no I/O, no state. Execution policy (writes before
// commands) lives in the agent; this package only preserves document order
// within each kind.
package parser

import (
	"regexp"
	"strings"
)

// FileWriteIntent is a request to write content to a workspace-relative
// path. Constructed from one model response and consumed immediately.
type FileWriteIntent struct {
	Path    string
	Content string
}

// CommandIntent is a request to run one shell command.
type CommandIntent struct {
	Command string
}

// Result holds every intent found in one block of model text.
type Result struct {
	Writes   []FileWriteIntent
	Commands []CommandIntent
}

// HasIntents reports whether the block contained at least one intent.
func (r Result) HasIntents() bool {
	return len(r.Writes) > 0 || len(r.Commands) > 0
}

var (
	writeTagRe   = regexp.MustCompile(`(?s)<write_file\s+path="([^"]*)"\s*>(.*?)</write_file>`)
	commandTagRe = regexp.MustCompile(`(?s)<execute_command>(.*?)</execute_command>`)
)

// Parse extracts all well-formed intents from one block of model text.
// Tags with an empty path attribute are discarded; empty content is valid
// (the model may intend to truncate a file). Commands that are empty after
// trimming are discarded.
func Parse(text string) Result {
	var res Result
	for _, m := range writeTagRe.FindAllStringSubmatch(text, -1) {
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		res.Writes = append(res.Writes, FileWriteIntent{
			Path:    path,
			Content: strings.TrimSpace(m[2]),
		})
	}
	for _, m := range commandTagRe.FindAllStringSubmatch(text, -1) {
		cmd := strings.TrimSpace(m[1])
		if cmd == "" {
			continue
		}
		res.Commands = append(res.Commands, CommandIntent{Command: cmd})
	}
	return res
}

// Strip removes all matched tag spans from the text and trims the result.
// It is idempotent: applying it to its own output is a no-op.
func Strip(text string) string {
	text = writeTagRe.ReplaceAllString(text, "")
	text = commandTagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// quietCommands lists commands whose raw output is suppressed on the
// terminal; the model still receives the full output either way. The list
// is data, not substring heuristics: an entry matches only as the first
// word of an unpiped command line.
var quietCommands = map[string]bool{
	"cat":  true,
	"type": true,
	"ls":   true,
	"dir":  true,
	"head": true,
	"tail": true,
}

// QuietCommand reports whether a command's output should be withheld from
// the terminal echo. Piped or chained commands are never quiet.
func QuietCommand(command string) bool {
	if strings.ContainsAny(command, "|&;") {
		return false
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	return quietCommands[fields[0]]
}
