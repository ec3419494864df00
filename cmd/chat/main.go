// Command chat is a synchronous REPL harness around a coordinator. It is
// the only synchronous adapter; the server drives coordinators from
// websocket read loops.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"maestro.app/gateway/common/id"
	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/core/config"
	"maestro.app/gateway/internal/agent"
	"maestro.app/gateway/internal/chat"
	"maestro.app/gateway/internal/tools"
)

// consoleChannel prints progress events to stderr so they interleave
// visibly with the prompt on stdout.
type consoleChannel struct{}

func (consoleChannel) Send(_ context.Context, ev chat.Event) {
	fmt.Fprintf(os.Stderr, "  [%s] %s\n", ev.Kind, ev.Content)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	engine, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.ChatLLM.Provider,
		APIKey:   cfg.ChatLLM.APIKey,
		BaseURL:  cfg.ChatLLM.BaseURL,
		Model:    cfg.ChatLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build llm client", "error", err)
		os.Exit(1)
	}

	taskAgent := agent.NewTaskAgent(engine, agent.NewTaskClient(cfg.Tasks.BaseURL))
	routineAgent := agent.NewRoutineAgent(engine, agent.NewRoutineClient(cfg.Routines.BaseURL))

	caps := []chat.Capability{taskAgent.Capability(), routineAgent.Capability()}
	caps = append(caps, tools.Registry()...)

	coordinator, err := chat.NewCoordinator(engine, consoleChannel{}, caps, chat.Config{
		MaxIterations: cfg.Chat.MaxIterations,
		MaxTokens:     cfg.ChatLLM.MaxTokens,
		HandleTimeout: time.Duration(cfg.Chat.HandleTimeout) * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build coordinator", "error", err)
		os.Exit(1)
	}

	fmt.Println("concierge chat (type 'exit' to quit)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		answer, err := coordinator.Handle(ctx, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			continue
		}
		fmt.Println(answer)
	}
}
