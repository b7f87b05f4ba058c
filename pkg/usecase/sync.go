package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/service/plan"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// SyncUseCase is the storage synchronizer: the only component allowed to
// mutate the durable and ephemeral tiers. UI callbacks never write storage
// directly, which keeps concurrent writes out of the storage layer.
type SyncUseCase struct {
	repo      interfaces.Repository
	sessions  interfaces.SessionStore
	extractor *plan.Extractor
	now       func() time.Time
}

func NewSyncUseCase(repo interfaces.Repository, sessions interfaces.SessionStore, extractor *plan.Extractor) *SyncUseCase {
	return &SyncUseCase{
		repo:      repo,
		sessions:  sessions,
		extractor: extractor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (uc *SyncUseCase) WithClock(now func() time.Time) *SyncUseCase {
	uc.now = now
	return uc
}

// Snapshot is the hydrated view of one scope at session load.
type Snapshot struct {
	UIState      model.SessionUIState
	Transcript   []model.Message
	Confidence   *model.ConfidenceRecord
	AllPlans     []*model.Plan
	Conversation []*model.Plan
}

// Hydrate loads everything the controller needs for a scope, fanning the
// durable reads out concurrently. Older plan records missing step resources
// are migrated (backfilled and written back) exactly once.
func (uc *SyncUseCase) Hydrate(ctx context.Context, scope model.Scope) (*Snapshot, error) {
	snap := &Snapshot{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rows, err := uc.repo.Transcript().List(egCtx, scope)
		if err != nil {
			return goerr.Wrap(err, "failed to load transcript", goerr.V(ScopeKey, scope.Key()))
		}
		snap.Transcript = rows
		return nil
	})
	eg.Go(func() error {
		rec, err := uc.repo.Confidence().Get(egCtx, scope)
		if err != nil {
			return goerr.Wrap(err, "failed to load confidence record", goerr.V(ScopeKey, scope.Key()))
		}
		snap.Confidence = rec
		return nil
	})
	eg.Go(func() error {
		plans, err := uc.repo.Plans().List(egCtx, scope.UserID)
		if err != nil {
			return goerr.Wrap(err, "failed to load plans", goerr.V("user_id", scope.UserID))
		}
		snap.AllPlans = uc.migratePlans(egCtx, scope.UserID, plans)
		return nil
	})
	if err := eg.Wait(); err != nil {
		// Storage failures degrade to an empty snapshot rather than halting
		// the controller.
		logging.From(ctx).Warn("hydration degraded to defaults", "error", err.Error())
		return &Snapshot{UIState: model.SessionUIState{Mode: types.SessionModeNormal}}, nil
	}

	state, err := uc.sessions.UIState(ctx, scope)
	if err != nil {
		state = model.SessionUIState{Mode: types.SessionModeNormal}
	}
	snap.UIState = state

	conv, err := uc.sessions.ConversationPlans(ctx, scope.UserID, scope.Focus)
	if err == nil {
		snap.Conversation = conv
	}
	return snap, nil
}

// migratePlans backfills default resources on steps that predate resource
// links, writing the repaired list back once. Failures leave the in-memory
// copy repaired and the stored copy as-is.
func (uc *SyncUseCase) migratePlans(ctx context.Context, userID types.UserID, plans []*model.Plan) []*model.Plan {
	migrated := false
	for _, p := range plans {
		if uc.extractor.Backfill(p) {
			migrated = true
		}
	}
	if migrated {
		if err := uc.repo.Plans().Replace(ctx, userID, plans); err != nil {
			logging.From(ctx).Warn("plan resource migration write-back failed", "error", err.Error())
		}
	}
	return plans
}

// AcceptPlan marks the plan accepted and moves it into both the durable
// all-plans list and the ephemeral conversation list, deduplicated by ID.
func (uc *SyncUseCase) AcceptPlan(ctx context.Context, userID types.UserID, focus string, p *model.Plan) error {
	if p == nil {
		return goerr.Wrap(ErrPlanNotFound, "nil plan")
	}
	p.Accept(uc.now())

	if err := uc.repo.Plans().Put(ctx, userID, p); err != nil {
		return goerr.Wrap(err, "failed to store accepted plan", goerr.V(PlanIDKey, p.ID))
	}
	if err := uc.sessions.PutConversationPlan(ctx, userID, focus, p); err != nil {
		return goerr.Wrap(err, "failed to store conversation plan", goerr.V(PlanIDKey, p.ID))
	}
	return nil
}

// TrackConversationPlan records a freshly extracted (not yet accepted) plan in
// the ephemeral conversation list only.
func (uc *SyncUseCase) TrackConversationPlan(ctx context.Context, userID types.UserID, focus string, p *model.Plan) {
	if p == nil {
		return
	}
	if err := uc.sessions.PutConversationPlan(ctx, userID, focus, p); err != nil {
		logging.From(ctx).Warn("failed to track conversation plan", "error", err.Error())
	}
}

// ListPlans returns the user's durable plans, migrated if needed.
func (uc *SyncUseCase) ListPlans(ctx context.Context, userID types.UserID) ([]*model.Plan, error) {
	plans, err := uc.repo.Plans().List(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load plans", goerr.V("user_id", userID))
	}
	return uc.migratePlans(ctx, userID, plans), nil
}

// FindPlan looks a plan up by ID across the conversation and durable lists.
func (uc *SyncUseCase) FindPlan(ctx context.Context, userID types.UserID, focus string, planID types.PlanID) (*model.Plan, error) {
	conv, err := uc.sessions.ConversationPlans(ctx, userID, focus)
	if err == nil {
		for _, p := range conv {
			if p.ID == planID {
				return p, nil
			}
		}
	}
	all, err := uc.repo.Plans().List(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load plans", goerr.V("user_id", userID))
	}
	for _, p := range all {
		if p.ID == planID {
			return p, nil
		}
	}
	return nil, goerr.Wrap(ErrPlanNotFound, "no such plan", goerr.V(PlanIDKey, planID))
}

// DeletePlan removes the plan from both tiers.
func (uc *SyncUseCase) DeletePlan(ctx context.Context, userID types.UserID, focus string, planID types.PlanID) error {
	if err := uc.repo.Plans().Delete(ctx, userID, planID); err != nil {
		return goerr.Wrap(err, "failed to delete plan", goerr.V(PlanIDKey, planID))
	}
	if err := uc.sessions.RemoveConversationPlan(ctx, userID, focus, planID); err != nil {
		return goerr.Wrap(err, "failed to remove conversation plan", goerr.V(PlanIDKey, planID))
	}
	return nil
}

// ClearChat removes the ephemeral conversation-plan list and the durable
// transcript for the current scope only. Baselines of any need and the
// durable all-plans list are untouched.
func (uc *SyncUseCase) ClearChat(ctx context.Context, scope model.Scope) error {
	if err := uc.repo.Transcript().Clear(ctx, scope); err != nil {
		return goerr.Wrap(err, "failed to clear transcript", goerr.V(ScopeKey, scope.Key()))
	}
	if err := uc.sessions.ClearConversation(ctx, scope.UserID, scope.Focus); err != nil {
		return goerr.Wrap(err, "failed to clear conversation plans", goerr.V(ScopeKey, scope.Key()))
	}
	state, err := uc.sessions.UIState(ctx, scope)
	if err == nil {
		state.ResetTransient()
		if err := uc.sessions.PutUIState(ctx, scope, state); err != nil {
			logging.From(ctx).Warn("failed to reset session state after clear", "error", err.Error())
		}
	}
	return nil
}

// ClearAll removes baselines, check-ins, transcripts and plans across every
// focus and need for the user. Destructive; the API layer gates it behind an
// explicit confirmation.
func (uc *SyncUseCase) ClearAll(ctx context.Context, userID types.UserID, confirmed bool) error {
	if !confirmed {
		return goerr.Wrap(ErrConfirmationRequired, "clear-all must be confirmed")
	}
	if err := uc.repo.ClearUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear durable state", goerr.V("user_id", userID))
	}
	if err := uc.sessions.ClearUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear session state", goerr.V("user_id", userID))
	}
	return nil
}
