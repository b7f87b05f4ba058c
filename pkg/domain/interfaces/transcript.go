package interfaces

import (
	"context"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// TranscriptRepository stores the durable per-need message transcript.
// Rows are append-only, rendered in append order.
type TranscriptRepository interface {
	List(ctx context.Context, scope model.Scope) ([]model.Message, error)
	Append(ctx context.Context, scope model.Scope, msg model.Message) error
	// Upsert replaces the row with the same ID, or appends when absent. Used
	// for stable-id system prompts and for patching placeholders.
	Upsert(ctx context.Context, scope model.Scope, msg model.Message) error
	// Remove deletes the row with the given ID, if present.
	Remove(ctx context.Context, scope model.Scope, id types.MessageID) error
	// Clear removes the transcript for the scope only. Other needs' records
	// are untouched.
	Clear(ctx context.Context, scope model.Scope) error
}
