package types

import "fmt"

// MessageKind discriminates transcript message variants. It is a closed set:
// the controller and renderer switch over it exhaustively.
type MessageKind string

const (
	MessageKindSystem        MessageKind = "system"
	MessageKindText          MessageKind = "text"
	MessageKindPlan          MessageKind = "plan"
	MessageKindPlanAccept    MessageKind = "plan_accept"
	MessageKindDailyProgress MessageKind = "daily_progress"
)

// AllMessageKinds returns all valid message kinds
func AllMessageKinds() []MessageKind {
	return []MessageKind{
		MessageKindSystem,
		MessageKindText,
		MessageKindPlan,
		MessageKindPlanAccept,
		MessageKindDailyProgress,
	}
}

// IsValid checks if the message kind is valid
func (k MessageKind) IsValid() bool {
	switch k {
	case MessageKindSystem,
		MessageKindText,
		MessageKindPlan,
		MessageKindPlanAccept,
		MessageKindDailyProgress:
		return true
	default:
		return false
	}
}

// String returns the string representation of the message kind
func (k MessageKind) String() string {
	return string(k)
}

// ParseMessageKind parses a string into a MessageKind. An empty string maps to
// MessageKindText so that backend rows without a kind stay renderable.
func ParseMessageKind(s string) (MessageKind, error) {
	if s == "" {
		return MessageKindText, nil
	}
	kind := MessageKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid message kind: %s", s)
	}
	return kind, nil
}
