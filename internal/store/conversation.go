// Package store persists finished conversation exchanges so transcripts
// survive beyond the session's life.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema expected by the archive:
//
//	CREATE TABLE IF NOT EXISTS conversation_turns (
//	    id             BIGSERIAL PRIMARY KEY,
//	    session_id     BIGINT      NOT NULL,
//	    user_text      TEXT        NOT NULL,
//	    assistant_text TEXT        NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
//	);

// ConversationStore archives completed exchanges, one row per
// user/assistant pair.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// Archive inserts one completed exchange.
func (s *ConversationStore) Archive(ctx context.Context, sessionID int64, userText, assistantText string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (session_id, user_text, assistant_text) VALUES ($1, $2, $3)`,
		sessionID, userText, assistantText)
	if err != nil {
		return fmt.Errorf("archiving exchange: %w", err)
	}
	return nil
}
