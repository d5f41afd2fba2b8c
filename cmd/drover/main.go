package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/m4xw311/drover/agent"
	"github.com/m4xw311/drover/agent/terminal"
	"github.com/m4xw311/drover/config"
	"github.com/m4xw311/drover/errors"
	"github.com/m4xw311/drover/llm"
	"github.com/m4xw311/drover/models"
	"github.com/m4xw311/drover/session"
	"github.com/m4xw311/drover/shell"
	"github.com/m4xw311/drover/trust"
	"github.com/m4xw311/drover/ui"
	"github.com/m4xw311/drover/workspace"
)

func main() {
	taskFlag := flag.String("task", "", "Run one instruction non-interactively, print a summary, and exit")
	sessionFlag := flag.String("s", "", "Session name to create")
	resumeFlag := flag.String("r", "", "Resume a session by name")
	modelFlag := flag.String("m", "", "Model identifier or alias (overrides config)")
	providerFlag := flag.String("provider", "", "LLM provider: openai, anthropic, gemini, bedrock, mock")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *providerFlag != "" {
		cfg.Provider = *providerFlag
	}

	registry, err := models.NewRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading model registry: %+v\n", err)
		os.Exit(1)
	}

	render := ui.NewRenderer(os.Stdout)

	// A missing credential is fatal before any interactive state exists.
	client, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", cfg.Provider, err)
		os.Exit(1)
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving working directory: %+v\n", err)
		os.Exit(1)
	}
	ws, err := workspace.New(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening workspace: %+v\n", err)
		os.Exit(1)
	}

	// The gate runs exactly once, before any accessor or executor exists.
	gate := trust.NewGate(cfg, os.Stdin, os.Stdout)
	ok, err := gate.Ensure(ws.Root())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trust decision: %+v\n", err)
		os.Exit(1)
	}
	if !ok {
		render.Info("Workspace not trusted; exiting without enabling tools.")
		return
	}

	modelID := cfg.DefaultModel
	if *modelFlag != "" {
		modelID = *modelFlag
	}
	if modelID == "" {
		modelID = "gpt-4o-mini"
	}
	resolved, _ := registry.Resolve(modelID)

	var sess *session.Session
	if *resumeFlag != "" {
		sess, err = session.Load(*resumeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming session '%s': %+v\n", *resumeFlag, err)
			os.Exit(1)
		}
		render.Info("Resuming session: %s", sess.Name)
	} else {
		name := *sessionFlag
		if name == "" {
			name = defaultSessionName()
		}
		sess, err = session.New(name, agent.SystemPrompt, resolved.ID, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session '%s': %+v\n", name, err)
			os.Exit(1)
		}
	}
	if *modelFlag != "" {
		sess.SetModel(resolved.ID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	droverAgent := agent.New(cfg, sess, client, ws, shell.NewExecutor(ws.Root()))

	if *taskFlag != "" {
		runTask(ctx, droverAgent, render, *taskFlag)
		return
	}

	term := terminal.New(droverAgent, registry, render, os.Stdin)
	if err := term.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Session stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return llm.NewOpenAIClient(cfg.APIKey, cfg.BaseURL)
	case "anthropic":
		return llm.NewAnthropicClient(cfg.APIKey)
	case "gemini":
		return llm.NewGeminiClient(context.Background(), cfg.APIKey)
	case "bedrock":
		return llm.NewBedrockClient(context.Background())
	case "mock":
		return &llm.MockClient{}, nil
	}
	return nil, errors.NewKind(errors.ErrSetupFailed, "unknown provider '%s'", cfg.Provider)
}

func runTask(ctx context.Context, a *agent.Agent, render *ui.Renderer, instruction string) {
	cb := agent.Callbacks{
		OnAssistantText: func(text string) { render.Assistant(text) },
		OnFileWrite: func(path string, err error) {
			if err != nil {
				render.Error("write %s: %v", path, err)
				return
			}
			render.Success("wrote %s", path)
		},
		OnCommand: func(command string, res *shell.Result, err error, quiet bool) {
			render.Info("$ %s", command)
			if err != nil {
				render.Error("%v", err)
			} else if !quiet && res != nil && strings.TrimSpace(res.Stdout) != "" {
				render.Plain("%s", strings.TrimRight(res.Stdout, "\n"))
			}
		},
		OnWarning: func(w string) { render.Error("Warning: %s", w) },
	}

	if err := a.RunTask(ctx, instruction, cb); err != nil {
		fmt.Fprintf(os.Stderr, "Task failed: %+v\n", err)
		os.Exit(1)
	}

	files := a.Session.Log.FilesModified()
	commands := a.Session.Log.Commands()
	render.Plain("")
	render.Info("Summary: %d file(s) modified, %d command(s) executed.", len(files), len(commands))
	for _, f := range files {
		render.Plain("  M %s", f)
	}
	for _, c := range commands {
		render.Plain("  $ %s", c.Command)
	}
	render.Info("Tokens: %d prompt, %d completion, %d total.",
		a.Session.Usage.PromptTokens, a.Session.Usage.CompletionTokens, a.Session.Usage.TotalTokens)
}

func defaultSessionName() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "drover"
	}
	return fmt.Sprintf("%s_%s", filepath.Base(wd), time.Now().Format("2006-01-02_15-04-05"))
}
