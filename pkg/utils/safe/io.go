package safe

import (
	"context"
	"io"

	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// Close closes the closer and logs a failure instead of returning it. Meant
// for defer sites where the close error has no caller to go to. Nil closers
// are a no-op.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("close failed", "error", err.Error())
	}
}
