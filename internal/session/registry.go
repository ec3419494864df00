package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maestro.app/gateway/common/id"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/internal/chat"
)

// Session is one live client connection with its dedicated coordinator.
type Session struct {
	ID          int64
	Channel     chat.Channel
	Coordinator *chat.Coordinator
	CreatedAt   time.Time
}

// CoordinatorFactory builds a fresh coordinator bound to a session's channel.
type CoordinatorFactory func(channel chat.Channel) (*chat.Coordinator, error)

// Registry tracks live sessions. Session identity is a generated id, never
// the connection object, so lookups stay valid regardless of how the
// transport layer recycles its connections.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	factory  CoordinatorFactory
}

func NewRegistry(factory CoordinatorFactory) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		factory:  factory,
	}
}

// Open registers a new session for the given channel and returns it.
func (r *Registry) Open(ctx context.Context, channel chat.Channel) (*Session, error) {
	coordinator, err := r.factory(channel)
	if err != nil {
		return nil, fmt.Errorf("building coordinator: %w", err)
	}

	s := &Session{
		ID:          id.New(),
		Channel:     channel,
		Coordinator: coordinator,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(s.ID)})
	slog.InfoContext(ctx, "session opened", "active_sessions", count)

	return s, nil
}

// Close removes a session. Closing an unknown or already-closed session is
// a no-op.
func (r *Registry) Close(ctx context.Context, sessionID int64) {
	r.mu.Lock()
	_, existed := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	count := len(r.sessions)
	r.mu.Unlock()

	if !existed {
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(sessionID)})
	slog.InfoContext(ctx, "session closed", "active_sessions", count)
}

// Lookup returns the session for an id, or nil when none is registered.
func (r *Registry) Lookup(sessionID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
