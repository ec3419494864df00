package chat

import (
	"context"

	"maestro.app/gateway/common/llm"
)

// CallContext carries everything a capability invocation may need. The
// channel is injected per-call so stateless capabilities can be shared
// across coordinators without leaking another session's connection.
type CallContext struct {
	Arguments string // JSON-encoded arguments from the engine
	History   []Turn // prior conversation, system turns pruned
	Channel   Channel
}

// InvokeFunc executes a capability. A returned error means an internal
// failure; user-visible validation failures are returned as the result
// string instead.
type InvokeFunc func(ctx context.Context, call CallContext) (string, error)

// Capability is a named, described, invocable unit the engine can select.
// Names must be unique within one coordinator's set: the engine selects by
// name, so a collision would silently shadow.
type Capability struct {
	Name        string
	Description string
	Parameters  any // JSON Schema for arguments
	Invoke      InvokeFunc
}

// Definitions converts a capability set into engine tool definitions.
func Definitions(caps []Capability) []llm.Tool {
	tools := make([]llm.Tool, len(caps))
	for i, c := range caps {
		tools[i] = llm.Tool{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.Parameters,
		}
	}
	return tools
}
