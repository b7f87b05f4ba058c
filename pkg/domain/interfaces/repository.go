package interfaces

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Repository is the durable storage tier. It survives restarts and is scoped
// per user. The UI layer never touches it directly; all mutation goes through
// the storage synchronizer.
type Repository interface {
	Confidence() ConfidenceRepository
	Plans() PlanRepository
	Transcript() TranscriptRepository

	// ClearUser removes every record for the user across all focus areas and
	// needs: baselines, check-ins, transcripts and the accepted-plan list.
	ClearUser(ctx context.Context, userID types.UserID) error

	Close() error
}
