package memory

import (
	"context"
	"sync"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

type planRepository struct {
	mu    sync.RWMutex
	lists map[types.UserID][]*model.Plan
}

func newPlanRepository() *planRepository {
	return &planRepository{
		lists: make(map[types.UserID][]*model.Plan),
	}
}

func (r *planRepository) List(ctx context.Context, userID types.UserID) ([]*model.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return clonePlans(r.lists[userID]), nil
}

func (r *planRepository) Put(ctx context.Context, userID types.UserID, plan *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lists[userID] = model.DedupPlans(r.lists[userID], plan.Clone())
	return nil
}

func (r *planRepository) Replace(ctx context.Context, userID types.UserID, plans []*model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lists[userID] = clonePlans(plans)
	return nil
}

func (r *planRepository) Delete(ctx context.Context, userID types.UserID, planID types.PlanID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.lists[userID]
	out := list[:0]
	for _, p := range list {
		if p.ID != planID {
			out = append(out, p)
		}
	}
	r.lists[userID] = out
	return nil
}

func (r *planRepository) clearUser(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lists, userID)
}

func clonePlans(plans []*model.Plan) []*model.Plan {
	out := make([]*model.Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out
}
