package chat

import "context"

// EventKind classifies a notification pushed to the client during or after
// processing.
type EventKind string

const (
	EventMessage           EventKind = "message"
	EventError             EventKind = "error"
	EventFunctionCallStart EventKind = "function_call_start"
	EventFunctionCallInfo  EventKind = "function_call_info"
	EventFunctionCallEnd   EventKind = "function_call_end"
	EventFunctionCallError EventKind = "function_call_error"
	EventChainStart        EventKind = "chain_start"
	EventChainEnd          EventKind = "chain_end"
	EventComplete          EventKind = "complete"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
)

// Event is a structured notification for one client.
type Event struct {
	Kind    EventKind
	Content string
	Format  Format
}

// Channel is one side of a bidirectional, message-oriented connection to a
// single client. Send must not fail into capability code: implementations log
// delivery errors and carry on, and must preserve emission order.
type Channel interface {
	Send(ctx context.Context, ev Event)
}

// NopChannel discards all events. Used by the CLI harness and tests that
// don't care about progress notifications.
type NopChannel struct{}

func (NopChannel) Send(context.Context, Event) {}

// Notify sends a plain-text progress event, tolerating a nil channel.
func Notify(ctx context.Context, ch Channel, kind EventKind, content string) {
	if ch == nil {
		return
	}
	ch.Send(ctx, Event{Kind: kind, Content: content, Format: FormatText})
}
