// Package chat holds the in-memory conversation shown by the surfaces.
package chat

import "sync"

// Role says who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an append-only list of turns that can be cleared.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append adds a turn at the end.
func (t *Transcript) Append(role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy in insertion order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Clear empties the transcript in place.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
}

// Len reports the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
