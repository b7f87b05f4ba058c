package async

import (
	"context"

	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// Dispatch runs the handler in its own goroutine on a context detached from
// the caller's, so a finished HTTP request does not cancel background work.
// The request logger is carried over. Panics and errors are logged, never
// propagated.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bg := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bg).Error("background task panicked", "panic", r)
			}
		}()
		if err := handler(bg); err != nil {
			logging.From(bg).Error("background task failed", "error", err.Error())
		}
	}()
}
