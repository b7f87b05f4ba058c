package interfaces

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// PlanRepository stores one accepted-plan list per user, most-recent-first and
// deduplicated by plan ID.
type PlanRepository interface {
	List(ctx context.Context, userID types.UserID) ([]*model.Plan, error)
	// Put inserts or replaces the plan by ID at the head of the list.
	Put(ctx context.Context, userID types.UserID, plan *model.Plan) error
	// Replace rewrites the whole list. Used by one-time hydration migration.
	Replace(ctx context.Context, userID types.UserID, plans []*model.Plan) error
	Delete(ctx context.Context, userID types.UserID, planID types.PlanID) error
}
