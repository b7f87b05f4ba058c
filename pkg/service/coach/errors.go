package coach

import (
	"context"
	"errors"
	"net"

	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Sentinel errors for the gateway layer. Transport errors are wrapped around
// one of these so callers can branch on failure class with errors.Is.
var (
	// ErrTimeout marks deadline and timeout failures.
	ErrTimeout = errors.New("coach backend timed out")
	// ErrServer marks structured server error payloads (HTTP 4xx/5xx).
	ErrServer = errors.New("coach backend returned an error")
	// ErrNetwork marks generic connection failures.
	ErrNetwork = errors.New("coach backend is unreachable")

	// ErrStale marks a response superseded by a newer request. Callers treat
	// it as a no-op, never as a user-visible failure.
	ErrStale = errors.New("response superseded by a newer request")
)

// KindOf classifies a gateway error into its failure kind.
func KindOf(err error) types.FailureKind {
	switch {
	case err == nil:
		return types.FailureKindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return types.FailureKindTimeout
	case errors.Is(err, ErrServer):
		return types.FailureKindServer
	case errors.Is(err, ErrNetwork):
		return types.FailureKindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.FailureKindTimeout
	}
	return types.FailureKindNetwork
}

// IsStale reports whether the error marks a silently discarded response.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// UserMessage maps a failure kind to its user-facing copy. The copy is
// deterministic per kind so consecutive identical failures can be deduplicated
// against the previous transcript row.
func UserMessage(kind types.FailureKind) string {
	switch kind {
	case types.FailureKindTimeout:
		return "Your coach is taking longer than usual to respond. Give it a moment and try again."
	case types.FailureKindServer:
		return "Your coach hit a problem processing that. Please try sending your message again."
	case types.FailureKindNetwork:
		return "I couldn't reach your coach. Check your connection and try again."
	default:
		return ""
	}
}
