package coach

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

// Gateway wraps a Backend with request sequencing and bounded retry.
//
// Every outbound chat request is tagged with a monotonically increasing
// sequence number scoped to its (user, topic) pair. If a newer request has
// been issued for the same pair by the time a response arrives, the stale
// response is discarded (ErrStale), so the UI always reflects the most
// recently issued request for that conversation. Requests from other users
// or topics never supersede each other. There is no explicit cancel API;
// issuing a new request logically supersedes any in-flight one.
type Gateway struct {
	backend Backend
	retry   RetryPolicy

	mu   sync.Mutex
	seqs map[string]uint64
}

type GatewayOption func(*Gateway)

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return func(g *Gateway) {
		g.retry = p
	}
}

// NewGateway wraps the backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend: backend,
		retry:   DefaultRetryPolicy(),
		seqs:    map[string]uint64{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func seqKey(userID, topic string) string {
	return userID + "/" + topic
}

func (g *Gateway) nextSeq(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[key]++
	return g.seqs[key]
}

func (g *Gateway) latestSeq(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seqs[key]
}

// Chat issues the request with retry. When a newer request was issued for
// the same user and topic before this one resolved, the result is dropped
// and ErrStale is returned.
func (g *Gateway) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	key := seqKey(req.UserID, req.Topic)
	seq := g.nextSeq(key)

	var resp *ChatResponse
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		r, err := g.backend.Chat(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if latest := g.latestSeq(key); latest != seq {
		return nil, goerr.Wrap(ErrStale, "discarding out-of-order chat response",
			goerr.V("key", key),
			goerr.V("seq", seq),
			goerr.V("latest", latest))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Voice submits audio with the same supersede rule as Chat.
func (g *Gateway) Voice(ctx context.Context, req *VoiceRequest) (*VoiceResponse, error) {
	key := seqKey(req.UserID, req.Topic)
	seq := g.nextSeq(key)

	// The audio reader can only be consumed once, so voice requests are not
	// re-sent on failure; only the enclosing turn is retried by the user.
	resp, err := g.backend.Voice(ctx, req)

	if latest := g.latestSeq(key); latest != seq {
		return nil, goerr.Wrap(ErrStale, "discarding out-of-order voice response",
			goerr.V("key", key),
			goerr.V("seq", seq),
			goerr.V("latest", latest))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// History fetches the backend transcript with retry. History responses are
// merge-idempotent, so sequencing does not apply.
func (g *Gateway) History(ctx context.Context, q HistoryQuery) ([]model.Message, error) {
	var rows []model.Message
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		fetched, err := g.backend.History(ctx, q)
		if err != nil {
			return err
		}
		rows = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
