package types

import "github.com/google/uuid"

// PlanID identifies a plan. Identity is global: a plan id appears at most once
// in the durable list and at most once in the conversation list.
type PlanID string

// NewPlanID issues a new time-ordered plan ID.
func NewPlanID() PlanID {
	return PlanID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the plan ID
func (id PlanID) String() string {
	return string(id)
}

// MessageID identifies a transcript message.
type MessageID string

// NewMessageID issues a new time-ordered message ID.
func NewMessageID() MessageID {
	return MessageID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the message ID
func (id MessageID) String() string {
	return string(id)
}

// UserID is the stable caller-supplied user identity (email, uuid, etc.).
type UserID string

// String returns the string representation of the user ID
func (id UserID) String() string {
	return string(id)
}
