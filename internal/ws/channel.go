package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"maestro.app/gateway/internal/chat"
)

const writeTimeout = 10 * time.Second

// outboundFrame is the wire shape pushed to the client. Progress events
// travel as type "thinking" with an update_type discriminator.
type outboundFrame struct {
	Type       string `json:"type"`
	UpdateType string `json:"update_type,omitempty"`
	Content    string `json:"content"`
	Format     string `json:"format"`
}

// thinkingUpdateTypes maps internal progress kinds onto the client's
// update_type vocabulary.
var thinkingUpdateTypes = map[chat.EventKind]string{
	chat.EventFunctionCallStart: "tool_start",
	chat.EventFunctionCallInfo:  "start",
	chat.EventFunctionCallEnd:   "tool_end",
	chat.EventFunctionCallError: "error",
	chat.EventChainStart:        "chain_start",
	chat.EventChainEnd:          "chain_end",
	chat.EventComplete:          "complete",
}

// Channel adapts one websocket connection to the notification contract.
// Writes are mutex-serialized so delivery order matches emission order;
// failed sends are logged and dropped, never surfaced to capability code.
type Channel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewChannel(conn *websocket.Conn) *Channel {
	return &Channel{conn: conn}
}

func (c *Channel) Send(ctx context.Context, ev chat.Event) {
	frame := encodeFrame(ev)
	payload, err := json.Marshal(frame)
	if err != nil {
		slog.ErrorContext(ctx, "encoding outbound frame", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := c.conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		slog.WarnContext(ctx, "websocket send failed",
			"kind", string(ev.Kind), "error", err)
	}
}

func encodeFrame(ev chat.Event) outboundFrame {
	format := string(ev.Format)
	if format == "" {
		format = string(chat.FormatText)
	}

	switch ev.Kind {
	case chat.EventMessage:
		return outboundFrame{Type: "message", Content: ev.Content, Format: format}
	case chat.EventError:
		return outboundFrame{Type: "error", Content: ev.Content, Format: format}
	default:
		return outboundFrame{
			Type:       "thinking",
			UpdateType: thinkingUpdateTypes[ev.Kind],
			Content:    ev.Content,
			Format:     format,
		}
	}
}
