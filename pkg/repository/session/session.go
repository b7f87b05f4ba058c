package session

import (
	"context"
	"strings"
	"sync"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Store is the ephemeral tier: visit-scoped state that never outlives the
// process. It backs the conversation-plan list per (user, focus) and the UI
// flags per (user, focus, need).
type Store struct {
	mu     sync.RWMutex
	states map[string]model.SessionUIState
	plans  map[string][]*model.Plan
}

var _ interfaces.SessionStore = &Store{}

func New() *Store {
	return &Store{
		states: make(map[string]model.SessionUIState),
		plans:  make(map[string][]*model.Plan),
	}
}

func (s *Store) UIState(ctx context.Context, scope model.Scope) (model.SessionUIState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[scope.Key()]
	if !ok {
		return model.SessionUIState{Mode: types.SessionModeNormal}, nil
	}
	return state, nil
}

func (s *Store) PutUIState(ctx context.Context, scope model.Scope, state model.SessionUIState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[scope.Key()] = state
	return nil
}

func conversationKey(userID types.UserID, focus string) string {
	return userID.String() + "/" + model.Slugify(focus)
}

func (s *Store) ConversationPlans(ctx context.Context, userID types.UserID, focus string) ([]*model.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.plans[conversationKey(userID, focus)]
	out := make([]*model.Plan, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *Store) PutConversationPlan(ctx context.Context, userID types.UserID, focus string, plan *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey(userID, focus)
	s.plans[key] = model.DedupPlans(s.plans[key], plan.Clone())
	return nil
}

func (s *Store) RemoveConversationPlan(ctx context.Context, userID types.UserID, focus string, planID types.PlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey(userID, focus)
	list := s.plans[key]
	out := list[:0]
	for _, p := range list {
		if p.ID != planID {
			out = append(out, p)
		}
	}
	s.plans[key] = out
	return nil
}

func (s *Store) ClearConversation(ctx context.Context, userID types.UserID, focus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.plans, conversationKey(userID, focus))
	return nil
}

func (s *Store) ClearUser(ctx context.Context, userID types.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := userID.String() + "/"
	for key := range s.states {
		if strings.HasPrefix(key, prefix) {
			delete(s.states, key)
		}
	}
	for key := range s.plans {
		if strings.HasPrefix(key, prefix) {
			delete(s.plans, key)
		}
	}
	return nil
}
