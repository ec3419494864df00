package chat

import "maestro.app/gateway/common/llm"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation transcript.
type Turn struct {
	Role    Role
	Content string
}

// Transcript is the ordered log of conversation turns for one session.
// It is owned exclusively by one Coordinator and is append-only during a
// turn.
type Transcript struct {
	turns []Turn
}

func (t *Transcript) Append(role Role, content string) {
	t.turns = append(t.turns, Turn{Role: role, Content: content})
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the transcript.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// WithoutSystem returns the turns with system entries pruned. Sub-agents get
// this view: each carries its own fixed system turn and must never see the
// coordinator's.
func (t *Transcript) WithoutSystem() []Turn {
	out := make([]Turn, 0, len(t.turns))
	for _, turn := range t.turns {
		if turn.Role == RoleSystem {
			continue
		}
		out = append(out, turn)
	}
	return out
}

// Messages converts turns into LLM messages.
func Messages(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		out = append(out, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return out
}
