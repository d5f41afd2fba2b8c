package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/m4xw311/drover/errors"
)

// Message is one entry in the conversation log.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage accumulates token counts across model calls.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// CommandRun records one executed command and its captured output for the
// end-of-task summary.
type CommandRun struct {
	Command string
	Output  string
}

// Log accumulates side effects for the duration of one task execution. It
// is reported in the final summary and discarded with the process.
type Log struct {
	filesModified map[string]struct{}
	commands      []CommandRun
}

// RecordFileModified notes a file the model changed. Duplicate paths
// collapse.
func (l *Log) RecordFileModified(path string) {
	if l.filesModified == nil {
		l.filesModified = make(map[string]struct{})
	}
	l.filesModified[path] = struct{}{}
}

// RecordCommand notes an executed command in order.
func (l *Log) RecordCommand(command, output string) {
	l.commands = append(l.commands, CommandRun{Command: command, Output: output})
}

// FilesModified returns the touched paths, sorted.
func (l *Log) FilesModified() []string {
	paths := make([]string, 0, len(l.filesModified))
	for p := range l.filesModified {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Commands returns the executed commands in execution order.
func (l *Log) Commands() []CommandRun {
	return append([]CommandRun(nil), l.commands...)
}

// Session owns the ordered message log for one process, the current model
// and sampling parameters, and the running usage counters. The first
// message is always the system message; Reset restores exactly that state.
type Session struct {
	Name        string    `json:"name"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
	Messages    []Message `json:"messages"`
	Usage       Usage     `json:"usage"`

	Log  Log `json:"-"`
	path string
}

// New creates a session seeded with the system message.
func New(name, systemPrompt, model string, temperature float64, maxTokens int) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	return &Session{
		Name:        name,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages:    []Message{{Role: "system", Content: systemPrompt}},
		path:        path,
	}, nil
}

// Load restores a persisted session from disk.
func Load(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session file %s", path)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "could not parse session file %s", path)
	}
	if len(s.Messages) == 0 || s.Messages[0].Role != "system" {
		return nil, errors.New("session file %s has no leading system message", path)
	}
	s.path = path
	return &s, nil
}

// Save writes the current session state to disk.
func (s *Session) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize session")
	}
	return os.WriteFile(s.path, data, 0644)
}

// AddMessage appends a message to the history.
func (s *Session) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// AddUsage folds one model call's token counts into the running totals.
func (s *Session) AddUsage(u Usage) {
	s.Usage.PromptTokens += u.PromptTokens
	s.Usage.CompletionTokens += u.CompletionTokens
	s.Usage.TotalTokens += u.TotalTokens
}

// Reset truncates the history back to the single system message.
func (s *Session) Reset() {
	s.Messages = s.Messages[:1]
}

// SetModel switches the model used for subsequent calls.
func (s *Session) SetModel(id string) {
	s.Model = id
}

func sessionPath(name string) (string, error) {
	dir := filepath.Join(".drover", "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create session directory")
	}
	return filepath.Join(dir, fmt.Sprintf("%s.json", name)), nil
}
