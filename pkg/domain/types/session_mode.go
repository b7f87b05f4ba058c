package types

import "fmt"

// SessionMode is the state of the session controller's machine. The "awaiting"
// states are mutually exclusive by construction: the mode is a single value, so
// at most one gate can be armed at a time.
type SessionMode string

const (
	SessionModeNormal                  SessionMode = "NORMAL"
	SessionModeAwaitingBaseline        SessionMode = "AWAITING_BASELINE"
	SessionModeAwaitingBaselineReason  SessionMode = "AWAITING_BASELINE_REASON"
	SessionModeAwaitingDailyProgress   SessionMode = "AWAITING_DAILY_PROGRESS"
	SessionModeAwaitingDailyConfidence SessionMode = "AWAITING_DAILY_CONFIDENCE"
)

// AllSessionModes returns all valid session modes
func AllSessionModes() []SessionMode {
	return []SessionMode{
		SessionModeNormal,
		SessionModeAwaitingBaseline,
		SessionModeAwaitingBaselineReason,
		SessionModeAwaitingDailyProgress,
		SessionModeAwaitingDailyConfidence,
	}
}

// IsValid checks if the session mode is valid
func (m SessionMode) IsValid() bool {
	switch m {
	case SessionModeNormal,
		SessionModeAwaitingBaseline,
		SessionModeAwaitingBaselineReason,
		SessionModeAwaitingDailyProgress,
		SessionModeAwaitingDailyConfidence:
		return true
	default:
		return false
	}
}

// IsAwaiting reports whether the mode gates the next user input.
func (m SessionMode) IsAwaiting() bool {
	return m.IsValid() && m != SessionModeNormal
}

// ExpectsLevel reports whether the mode expects a 1-10 confidence reply.
func (m SessionMode) ExpectsLevel() bool {
	return m == SessionModeAwaitingBaseline || m == SessionModeAwaitingDailyConfidence
}

// String returns the string representation of the session mode
func (m SessionMode) String() string {
	return string(m)
}

// ParseSessionMode parses a string into a SessionMode. An empty string maps to
// SessionModeNormal so that fresh sessions need no stored flag.
func ParseSessionMode(s string) (SessionMode, error) {
	if s == "" {
		return SessionModeNormal, nil
	}
	mode := SessionMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid session mode: %s", s)
	}
	return mode, nil
}
