package coach_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/service/coach"
)

// stubBackend scripts per-call behavior for gateway tests.
type stubBackend struct {
	mu        sync.Mutex
	chatCalls int
	chatFn    func(call int, req *coach.ChatRequest) (*coach.ChatResponse, error)
	historyFn func(q coach.HistoryQuery) ([]model.Message, error)
}

func (s *stubBackend) Chat(ctx context.Context, req *coach.ChatRequest) (*coach.ChatResponse, error) {
	s.mu.Lock()
	s.chatCalls++
	call := s.chatCalls
	s.mu.Unlock()
	return s.chatFn(call, req)
}

func (s *stubBackend) History(ctx context.Context, q coach.HistoryQuery) ([]model.Message, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(q)
}

func (s *stubBackend) Voice(ctx context.Context, req *coach.VoiceRequest) (*coach.VoiceResponse, error) {
	return nil, coach.ErrServer
}

func okResponse(text string) *coach.ChatResponse {
	return &coach.ChatResponse{
		Messages: []coach.WireMessage{{Role: "assistant", Text: text}},
	}
}

func TestGatewayRetry(t *testing.T) {
	ctx := context.Background()
	fast := coach.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}

	t.Run("one retry after a transient failure", func(t *testing.T) {
		backend := &stubBackend{
			chatFn: func(call int, req *coach.ChatRequest) (*coach.ChatResponse, error) {
				if call == 1 {
					return nil, coach.ErrNetwork
				}
				return okResponse("hello"), nil
			},
		}
		g := coach.NewGateway(backend, coach.WithRetryPolicy(fast))

		resp, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u1", Message: "hi"})
		gt.NoError(t, err).Required()
		gt.Value(t, resp.Messages[0].Text).Equal("hello")
		gt.Number(t, backend.chatCalls).Equal(2)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		backend := &stubBackend{
			chatFn: func(call int, req *coach.ChatRequest) (*coach.ChatResponse, error) {
				return nil, coach.ErrServer
			},
		}
		g := coach.NewGateway(backend, coach.WithRetryPolicy(fast))

		_, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u1", Message: "hi"})
		gt.Bool(t, errors.Is(err, coach.ErrServer)).True()
		gt.Number(t, backend.chatCalls).Equal(2)
	})
}

func TestGatewayStaleDiscard(t *testing.T) {
	ctx := context.Background()

	firstInFlight := make(chan struct{})
	release := make(chan struct{})

	backend := &stubBackend{
		chatFn: func(call int, req *coach.ChatRequest) (*coach.ChatResponse, error) {
			if call == 1 {
				close(firstInFlight)
				<-release
				return okResponse("slow reply"), nil
			}
			return okResponse("fast reply"), nil
		},
	}
	g := coach.NewGateway(backend, coach.WithRetryPolicy(coach.RetryPolicy{MaxAttempts: 1}))

	done := make(chan error, 1)
	go func() {
		_, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u1", Message: "first"})
		done <- err
	}()

	<-firstInFlight
	resp, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u1", Message: "second"})
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Messages[0].Text).Equal("fast reply")

	close(release)
	gt.Bool(t, coach.IsStale(<-done)).True()
}

func TestGatewaySequencingIsScoped(t *testing.T) {
	ctx := context.Background()

	firstInFlight := make(chan struct{})
	release := make(chan struct{})

	backend := &stubBackend{
		chatFn: func(call int, req *coach.ChatRequest) (*coach.ChatResponse, error) {
			if call == 1 {
				close(firstInFlight)
				<-release
				return okResponse("reply for u1"), nil
			}
			return okResponse("reply for u2"), nil
		},
	}
	g := coach.NewGateway(backend, coach.WithRetryPolicy(coach.RetryPolicy{MaxAttempts: 1}))

	type result struct {
		resp *coach.ChatResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u1", Topic: "interview", Message: "slow"})
		done <- result{resp, err}
	}()

	<-firstInFlight
	resp, err := g.Chat(ctx, &coach.ChatRequest{UserID: "u2", Topic: "interview", Message: "fast"})
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Messages[0].Text).Equal("reply for u2")

	// u2's turn completing must not supersede u1's in-flight request.
	close(release)
	got := <-done
	gt.NoError(t, got.err).Required()
	gt.Value(t, got.resp.Messages[0].Text).Equal("reply for u1")
}

func TestKindOf(t *testing.T) {
	gt.Value(t, coach.KindOf(coach.ErrTimeout)).Equal(types.FailureKindTimeout)
	gt.Value(t, coach.KindOf(coach.ErrServer)).Equal(types.FailureKindServer)
	gt.Value(t, coach.KindOf(coach.ErrNetwork)).Equal(types.FailureKindNetwork)
	gt.Value(t, coach.KindOf(context.DeadlineExceeded)).Equal(types.FailureKindTimeout)
	gt.Value(t, coach.KindOf(errors.New("something else"))).Equal(types.FailureKindNetwork)
}

func TestMergeHistory(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	local := []model.Message{
		model.NewUserMessage("hello", ts),
		model.NewAssistantMessage("hi there", ts.Add(time.Second)),
	}

	fetched := []model.Message{
		{Role: "user", Kind: "text", Text: "hello", TS: ts},
		{Role: "assistant", Kind: "text", Text: "a row only the server has", TS: ts.Add(2 * time.Second)},
	}

	t.Run("missing rows are appended, duplicates skipped", func(t *testing.T) {
		merged := coach.MergeHistory(local, fetched)
		gt.Array(t, merged).Length(3)
		gt.Value(t, merged[2].Text).Equal("a row only the server has")
		gt.Value(t, merged[2].BackendKey).NotEqual("")
	})

	t.Run("merging twice is idempotent", func(t *testing.T) {
		merged := coach.MergeHistory(local, fetched)
		again := coach.MergeHistory(merged, fetched)
		gt.Array(t, again).Length(len(merged))
	})

	t.Run("local ordering is untouched", func(t *testing.T) {
		merged := coach.MergeHistory(local, fetched)
		gt.Value(t, merged[0].Text).Equal("hello")
		gt.Value(t, merged[1].Text).Equal("hi there")
	})
}
