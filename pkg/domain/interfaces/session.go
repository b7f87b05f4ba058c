package interfaces

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// SessionStore is the ephemeral storage tier, scoped to the current visit.
// It holds the conversation-plan list per (user, focus) and the UI flags per
// (user, focus, need). Cleared on visit end or explicit "clear chat".
type SessionStore interface {
	// UIState returns the stored state for the scope, or the zero state.
	UIState(ctx context.Context, scope model.Scope) (model.SessionUIState, error)
	PutUIState(ctx context.Context, scope model.Scope, state model.SessionUIState) error

	ConversationPlans(ctx context.Context, userID types.UserID, focus string) ([]*model.Plan, error)
	// PutConversationPlan inserts or replaces by ID at the head of the list.
	PutConversationPlan(ctx context.Context, userID types.UserID, focus string, plan *model.Plan) error
	RemoveConversationPlan(ctx context.Context, userID types.UserID, focus string, planID types.PlanID) error
	ClearConversation(ctx context.Context, userID types.UserID, focus string) error

	// ClearUser drops every visit-scoped record for the user.
	ClearUser(ctx context.Context, userID types.UserID) error
}
