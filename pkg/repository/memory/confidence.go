package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

type confidenceRepository struct {
	mu      sync.RWMutex
	records map[string]*model.ConfidenceRecord
}

func newConfidenceRepository() *confidenceRepository {
	return &confidenceRepository{
		records: make(map[string]*model.ConfidenceRecord),
	}
}

func (r *confidenceRepository) Get(ctx context.Context, scope model.Scope) (*model.ConfidenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[scope.Key()]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (r *confidenceRepository) Put(ctx context.Context, scope model.Scope, record *model.ConfidenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[scope.Key()] = record.Clone()
	return nil
}

func (r *confidenceRepository) clearUser(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := userID.String() + "/"
	for key := range r.records {
		if strings.HasPrefix(key, prefix) {
			delete(r.records, key)
		}
	}
}
