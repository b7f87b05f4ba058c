package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

type transcriptRepository struct {
	mu          sync.RWMutex
	transcripts map[string][]model.Message
}

func newTranscriptRepository() *transcriptRepository {
	return &transcriptRepository{
		transcripts: make(map[string][]model.Message),
	}
}

func (r *transcriptRepository) List(ctx context.Context, scope model.Scope) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.transcripts[scope.Key()]
	out := make([]model.Message, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *transcriptRepository) Append(ctx context.Context, scope model.Scope, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.Key()
	r.transcripts[key] = append(r.transcripts[key], msg)
	return nil
}

func (r *transcriptRepository) Upsert(ctx context.Context, scope model.Scope, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.Key()
	rows := r.transcripts[key]
	for i := range rows {
		if rows[i].ID == msg.ID {
			rows[i] = msg
			return nil
		}
	}
	r.transcripts[key] = append(rows, msg)
	return nil
}

func (r *transcriptRepository) Remove(ctx context.Context, scope model.Scope, id types.MessageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.Key()
	rows := r.transcripts[key]
	out := rows[:0]
	for _, m := range rows {
		if m.ID != id {
			out = append(out, m)
		}
	}
	r.transcripts[key] = out
	return nil
}

func (r *transcriptRepository) Clear(ctx context.Context, scope model.Scope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.transcripts, scope.Key())
	return nil
}

func (r *transcriptRepository) clearUser(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := userID.String() + "/"
	for key := range r.transcripts {
		if strings.HasPrefix(key, prefix) {
			delete(r.transcripts, key)
		}
	}
}
