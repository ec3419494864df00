package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
)

const defaultMaxIterations = 8

// Config bounds one Handle call.
type Config struct {
	MaxIterations int
	MaxTokens     int
	HandleTimeout time.Duration
}

// Coordinator is the per-session router. It owns the transcript and the
// capability set, and delegates each user message to the engine's
// function-calling loop. One coordinator never executes two capabilities
// concurrently; different sessions proceed fully independently.
type Coordinator struct {
	engine     llm.AgentClient
	channel    Channel
	caps       []Capability
	byName     map[string]Capability
	transcript Transcript
	cfg        Config
}

// NewCoordinator builds a coordinator with its capability set fixed for the
// session's lifetime. Duplicate capability names are rejected outright
// rather than silently shadowing.
func NewCoordinator(engine llm.AgentClient, channel Channel, caps []Capability, cfg Config) (*Coordinator, error) {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}

	byName := make(map[string]Capability, len(caps))
	for _, c := range caps {
		if _, exists := byName[c.Name]; exists {
			return nil, fmt.Errorf("duplicate capability name: %s", c.Name)
		}
		byName[c.Name] = c
	}

	return &Coordinator{
		engine:  engine,
		channel: channel,
		caps:    caps,
		byName:  byName,
		cfg:     cfg,
	}, nil
}

// Transcript exposes a copy of the conversation log.
func (c *Coordinator) Transcript() []Turn {
	return c.transcript.Turns()
}

// Handle processes one user message and returns the final answer text.
//
// The user turn is appended before the engine runs and stays appended even
// when the engine fails; the assistant turn is appended only on success, so
// the transcript is never left half-written. The caller is responsible for
// pushing the returned text through the channel as a message event.
func (c *Coordinator) Handle(ctx context.Context, userText string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "concierge.chat.coordinator",
	})

	if c.cfg.HandleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandleTimeout)
		defer cancel()
	}

	start := time.Now()
	history := c.transcript.Turns()
	c.transcript.Append(RoleUser, userText)

	Notify(ctx, c.channel, EventChainStart, "Processing message")

	finalText, err := c.runLoop(ctx, history, userText)
	if err != nil {
		Notify(ctx, c.channel, EventChainEnd, "Processing failed")
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("processing timed out after %s: %w", time.Since(start).Round(time.Millisecond), err)
		}
		return "", fmt.Errorf("processing failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}

	c.transcript.Append(RoleAssistant, finalText)

	slog.InfoContext(ctx, "message handled",
		"duration_ms", time.Since(start).Milliseconds(),
		"transcript_len", c.transcript.Len())

	Notify(ctx, c.channel, EventComplete, "Finished processing message")

	return finalText, nil
}

// runLoop drives the engine's function-calling cycle: the engine may select
// zero or more capabilities before producing a final text answer.
// Capability executions are strictly serial.
func (c *Coordinator) runLoop(ctx context.Context, history []Turn, userText string) (string, error) {
	messages := []llm.Message{{Role: "system", Content: c.systemPrompt()}}
	messages = append(messages, Messages(history)...)
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	tools := Definitions(c.caps)
	pruned := c.transcript.WithoutSystem()

	for iteration := 1; ; iteration++ {
		if iteration > c.cfg.MaxIterations {
			slog.InfoContext(ctx, "iteration limit reached, forcing final answer",
				"iterations", iteration)
			return c.forceFinal(ctx, messages)
		}

		resp, err := c.engine.ChatWithTools(ctx, llm.AgentRequest{
			Messages:  messages,
			Tools:     tools,
			MaxTokens: c.cfg.MaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("engine iteration %d: %w", iteration, err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := c.invoke(ctx, tc, pruned)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
}

// invoke runs one capability. Failures become tool-result strings so the
// engine can recover; they never abort the turn.
func (c *Coordinator) invoke(ctx context.Context, tc llm.ToolCall, history []Turn) string {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Capability: logger.Ptr(tc.Name),
	})

	handler, ok := c.byName[tc.Name]
	if !ok {
		slog.WarnContext(ctx, "engine selected unknown capability")
		return fmt.Sprintf("Error: unknown capability %q", tc.Name)
	}

	slog.DebugContext(ctx, "executing capability",
		"arguments", logger.Truncate(tc.Arguments, 200))

	start := time.Now()
	result, err := handler.Invoke(ctx, CallContext{
		Arguments: tc.Arguments,
		History:   history,
		Channel:   c.channel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "capability failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return fmt.Sprintf("Error after %s: %s", time.Since(start).Round(time.Millisecond), err)
	}

	slog.DebugContext(ctx, "capability completed",
		"duration_ms", time.Since(start).Milliseconds())

	return result
}

// forceFinal asks the engine for a text-only answer, withholding tools.
func (c *Coordinator) forceFinal(ctx context.Context, messages []llm.Message) (string, error) {
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Wrap up now: answer the user directly based on what you have so far.",
	})

	resp, err := c.engine.ChatWithTools(ctx, llm.AgentRequest{
		Messages:  messages,
		Tools:     nil, // no tools = force text response
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("forced final answer: %w", err)
	}

	return resp.Content, nil
}

func (c *Coordinator) systemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(`You are a personal assistant that coordinates specialized agents.
Current date: %s (%s)

Analyze each user message and route it to the appropriate agent: task-related
requests go to the task agent, routine-related requests go to the routine
agent. Use the utility tools for web lookups, date/time questions and
response formatting. Always answer clearly and keep responses organized.`,
		now.Format("2006-01-02"), now.Weekday())
}
