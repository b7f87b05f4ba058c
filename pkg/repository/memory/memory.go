package memory

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-memory durable tier, used in development and tests.
type Memory struct {
	confidence *confidenceRepository
	plans      *planRepository
	transcript *transcriptRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		confidence: newConfidenceRepository(),
		plans:      newPlanRepository(),
		transcript: newTranscriptRepository(),
	}
}

func (m *Memory) Confidence() interfaces.ConfidenceRepository {
	return m.confidence
}

func (m *Memory) Plans() interfaces.PlanRepository {
	return m.plans
}

func (m *Memory) Transcript() interfaces.TranscriptRepository {
	return m.transcript
}

// ClearUser removes every record for the user across all focus areas and needs.
func (m *Memory) ClearUser(ctx context.Context, userID types.UserID) error {
	m.confidence.clearUser(userID)
	m.plans.clearUser(userID)
	m.transcript.clearUser(userID)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
