package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/internal/chat"
)

const subAgentMaxIterations = 6

// runSubAgent drives a specialized handler's own function-calling cycle:
// its fixed system prompt, the pruned conversation history forwarded by
// the coordinator, and its private capability set. Capability failures
// become tool results, never errors; the loop is bounded and forced to a
// text answer at the cap.
func runSubAgent(ctx context.Context, engine llm.AgentClient, systemPrompt string, call chat.CallContext, query string, caps []chat.Capability) (string, error) {
	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	messages = append(messages, chat.Messages(call.History)...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	byName := make(map[string]chat.Capability, len(caps))
	for _, c := range caps {
		byName[c.Name] = c
	}
	tools := chat.Definitions(caps)

	for iteration := 1; ; iteration++ {
		forceFinal := iteration > subAgentMaxIterations
		req := llm.AgentRequest{Messages: messages, Tools: tools}
		if forceFinal {
			slog.InfoContext(ctx, "sub-agent iteration limit reached, forcing final answer")
			req.Tools = nil
			req.Messages = append(req.Messages, llm.Message{
				Role:    "user",
				Content: "Wrap up now: answer directly based on what you have so far.",
			})
		}

		resp, err := engine.ChatWithTools(ctx, req)
		if err != nil {
			return "", fmt.Errorf("sub-agent iteration %d: %w", iteration, err)
		}

		if forceFinal || len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := invokeCapability(ctx, byName, tc, call)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
}

func invokeCapability(ctx context.Context, byName map[string]chat.Capability, tc llm.ToolCall, call chat.CallContext) string {
	handler, ok := byName[tc.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown capability %q", tc.Name)
	}

	start := time.Now()
	result, err := handler.Invoke(ctx, chat.CallContext{
		Arguments: tc.Arguments,
		History:   call.History,
		Channel:   call.Channel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "sub-agent capability failed",
			"capability", tc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return fmt.Sprintf("Error after %s: %s", time.Since(start).Round(time.Millisecond), err)
	}
	return result
}
