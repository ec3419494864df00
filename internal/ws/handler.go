package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/internal/chat"
	"maestro.app/gateway/internal/session"
	"maestro.app/gateway/internal/tools"
)

// Archiver persists completed exchanges. Archive failures are logged and
// never affect the conversation.
type Archiver interface {
	Archive(ctx context.Context, sessionID int64, userText, assistantText string) error
}

// Handler owns the websocket endpoint: one session per connection, one
// read loop processing inbound messages strictly in order.
type Handler struct {
	registry       *session.Registry
	archiver       Archiver
	dedupThreshold float64
}

// NewHandler builds the endpoint. archiver may be nil when no transcript
// store is configured.
func NewHandler(registry *session.Registry, archiver Archiver, dedupThreshold float64) *Handler {
	return &Handler{
		registry:       registry,
		archiver:       archiver,
		dedupThreshold: dedupThreshold,
	}
}

// inboundFrame accepts both the current and the legacy field names plus
// the idle keepalive.
type inboundFrame struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Format  string `json:"format"`
	Idle    bool   `json:"idle"`
}

// Serve upgrades the request and runs the connection's read loop until
// the client disconnects.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	channel := NewChannel(conn)

	ctx := c.Request.Context()
	sess, err := h.registry.Open(ctx, channel)
	if err != nil {
		slog.ErrorContext(ctx, "opening session", "error", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	defer h.registry.Close(ctx, sess.ID)

	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(sess.ID)})

	h.readLoop(ctx, conn, channel, sess)
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop processes frames in arrival order. An in-flight Handle blocks
// the next read, which is the backpressure: the client cannot pipeline a
// second message past the first.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, channel *Channel, sess *session.Session) {
	var lastAccepted string

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				slog.InfoContext(ctx, "client disconnected")
			} else {
				slog.InfoContext(ctx, "websocket read ended", "error", err)
			}
			return
		}

		text, format, ok := decodeInbound(ctx, data)
		if !ok {
			continue
		}

		if lastAccepted != "" && tools.Ratio(text, lastAccepted) >= h.dedupThreshold {
			slog.InfoContext(ctx, "near-duplicate message ignored",
				"text", logger.Truncate(text, 120))
			continue
		}
		lastAccepted = text

		h.handleMessage(ctx, channel, sess, text, format)
	}
}

func (h *Handler) handleMessage(ctx context.Context, channel *Channel, sess *session.Session, text string, format chat.Format) {
	slog.InfoContext(ctx, "message received",
		"text", logger.Truncate(text, 200), "format", string(format))

	final, err := sess.Coordinator.Handle(ctx, text)
	if err != nil {
		slog.ErrorContext(ctx, "handling message", "error", err)
		channel.Send(ctx, chat.Event{
			Kind:    chat.EventError,
			Content: "There was an error processing your request. Please try again.",
			Format:  chat.FormatText,
		})
		return
	}

	channel.Send(ctx, chat.Event{
		Kind:    chat.EventMessage,
		Content: final,
		Format:  format,
	})

	if h.archiver != nil {
		if err := h.archiver.Archive(ctx, sess.ID, text, final); err != nil {
			slog.WarnContext(ctx, "archiving exchange", "error", err)
		}
	}
}

// decodeInbound parses one frame, tolerating the legacy content field and
// the idle keepalive. Unrecognized frames are logged and skipped.
func decodeInbound(ctx context.Context, data []byte) (string, chat.Format, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.WarnContext(ctx, "malformed inbound frame",
			"payload", logger.Truncate(string(data), 200))
		return "", "", false
	}

	if frame.Idle {
		return "", "", false
	}

	text := frame.Text
	if text == "" {
		text = frame.Content
	}
	if text == "" {
		slog.WarnContext(ctx, "inbound frame without text",
			"payload", logger.Truncate(string(data), 200))
		return "", "", false
	}

	format := chat.Format(frame.Format)
	switch format {
	case chat.FormatMarkdown, chat.FormatText, chat.FormatHTML:
	default:
		format = chat.FormatMarkdown
	}

	return text, format, true
}
