package model

import "github.com/everlift-app/everlift/pkg/domain/types"

// SessionUIState is the per-(user, focus, need) conversation state persisted in
// the ephemeral tier. The controller resumes from it at session load, so a
// reload mid-gate lands back in the same mode.
//
// The awaiting gates are encoded as Mode rather than independent booleans: a
// single enum value cannot have two gates armed at once.
type SessionUIState struct {
	Mode             types.SessionMode
	ReadyForBaseline bool
	Engaged          bool
	// PendingRequest holds the raw user text of a plan request deferred while
	// the baseline gate is open. It is consumed exactly once.
	PendingRequest string
	ShowPlanSidebar bool
	PlanLink        string
	Mermaid         string
}

// AwaitingBaseline reports whether the baseline question gate is armed.
func (s SessionUIState) AwaitingBaseline() bool {
	return s.Mode == types.SessionModeAwaitingBaseline
}

// AwaitingBaselineReason reports whether the reason question gate is armed.
func (s SessionUIState) AwaitingBaselineReason() bool {
	return s.Mode == types.SessionModeAwaitingBaselineReason
}

// AwaitingDailyProgress reports whether the daily progress gate is armed.
func (s SessionUIState) AwaitingDailyProgress() bool {
	return s.Mode == types.SessionModeAwaitingDailyProgress
}

// AwaitingDailyConfidence reports whether the daily confidence gate is armed.
func (s SessionUIState) AwaitingDailyConfidence() bool {
	return s.Mode == types.SessionModeAwaitingDailyConfidence
}

// ResetTransient clears every awaiting gate and the pending request. Applied
// when the need or custom-need label changes.
func (s *SessionUIState) ResetTransient() {
	s.Mode = types.SessionModeNormal
	s.PendingRequest = ""
}

// ConsumePending returns the pending request text and clears it.
func (s *SessionUIState) ConsumePending() string {
	text := s.PendingRequest
	s.PendingRequest = ""
	return text
}
