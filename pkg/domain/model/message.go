package model

import (
	"strings"
	"time"

	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Message is one transcript row. Rows are append-only; the only permitted
// mutation is patching a placeholder (e.g. a pending voice transcript) with its
// resolved content via the stable ID.
type Message struct {
	ID         types.MessageID
	Role       types.Role
	Kind       types.MessageKind
	Text       string
	PlanID     types.PlanID
	TS         time.Time
	BackendKey string
}

// NewUserMessage builds a plain user text row.
func NewUserMessage(text string, now time.Time) Message {
	return Message{
		ID:   types.NewMessageID(),
		Role: types.RoleUser,
		Kind: types.MessageKindText,
		Text: text,
		TS:   now,
	}
}

// NewAssistantMessage builds a plain assistant text row.
func NewAssistantMessage(text string, now time.Time) Message {
	return Message{
		ID:   types.NewMessageID(),
		Role: types.RoleAssistant,
		Kind: types.MessageKindText,
		Text: text,
		TS:   now,
	}
}

// NewSystemPrompt builds a system row with a caller-chosen stable ID so the
// transcript can upsert it instead of accumulating duplicates.
func NewSystemPrompt(id types.MessageID, text string, now time.Time) Message {
	return Message{
		ID:   id,
		Role: types.RoleAssistant,
		Kind: types.MessageKindSystem,
		Text: text,
		TS:   now,
	}
}

// CompositeKey returns the reconciliation identity of the row. Rows fetched
// from the backend that match an existing key are never re-inserted.
func (m Message) CompositeKey() string {
	if m.BackendKey != "" {
		return m.BackendKey
	}
	return strings.Join([]string{
		m.TS.UTC().Format(time.RFC3339),
		m.Role.String(),
		m.Kind.String(),
		m.Text,
	}, "|")
}
