package interfaces

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

// ConfidenceRepository stores one ConfidenceRecord per (user, focus, need).
type ConfidenceRepository interface {
	// Get returns the record for the scope, or nil when none exists.
	Get(ctx context.Context, scope model.Scope) (*model.ConfidenceRecord, error)
	Put(ctx context.Context, scope model.Scope, record *model.ConfidenceRecord) error
}
