package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/repository/memory"
	"github.com/everlift-app/everlift/pkg/repository/session"
	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/usecase"
)

// fakeBackend records requests and replies with a scripted response.
type fakeBackend struct {
	mu       sync.Mutex
	requests []*coach.ChatRequest
	response *coach.ChatResponse
	err      error
	block    chan struct{}
}

func (f *fakeBackend) Chat(ctx context.Context, req *coach.ChatRequest) (*coach.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &coach.ChatResponse{
		Messages: []coach.WireMessage{{Role: "assistant", Text: "ok: " + req.Message}},
	}, nil
}

func (f *fakeBackend) History(ctx context.Context, q coach.HistoryQuery) ([]model.Message, error) {
	return nil, nil
}

func (f *fakeBackend) Voice(ctx context.Context, req *coach.VoiceRequest) (*coach.VoiceResponse, error) {
	return nil, coach.ErrServer
}

func (f *fakeBackend) lastRequest() *coach.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fixture struct {
	uc      *usecase.UseCases
	backend *fakeBackend
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend: &fakeBackend{},
		now:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	gateway := coach.NewGateway(f.backend, coach.WithRetryPolicy(coach.RetryPolicy{MaxAttempts: 1}))
	f.uc = usecase.New(memory.New(), session.New(), gateway)
	clock := func() time.Time { return f.now }
	f.uc.Ledger.WithClock(clock)
	f.uc.Session.WithClock(clock)
	f.uc.Sync.WithClock(clock)
	return f
}

func lastAssistantText(res *usecase.TurnResult) string {
	for i := len(res.Messages) - 1; i >= 0; i-- {
		if res.Messages[i].Role == types.RoleAssistant {
			return res.Messages[i].Text
		}
	}
	return ""
}

func TestBaselineGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	// A plan request before any baseline arms the gate instead of reaching
	// the backend.
	res, err := f.uc.Session.HandleMessage(ctx, scope, "help me prepare a plan for my interview", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaseline)
	gt.Number(t, f.backend.calls()).Equal(0)
	gt.Bool(t, strings.Contains(lastAssistantText(res), "1-10")).True()

	// A non-numeric reply re-prompts without changing state.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "pretty nervous honestly", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaseline)
	gt.Number(t, f.backend.calls()).Equal(0)

	// A valid level records the baseline and asks for the reason.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "6/10", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaselineReason)
	gt.Number(t, f.backend.calls()).Equal(0)
	gt.Bool(t, strings.Contains(lastAssistantText(res), "6")).True()

	sum, err := f.uc.Ledger.Summarize(ctx, scope)
	gt.NoError(t, err).Required()
	gt.Value(t, *sum.Baseline).Equal(6.0)

	// The reason answer releases the deferred request as one enriched turn.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "I blanked out in my last one", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
	gt.Number(t, f.backend.calls()).Equal(1)

	req := f.backend.lastRequest()
	gt.Bool(t, strings.Contains(req.Message, "help me prepare a plan")).True()
	gt.Bool(t, strings.Contains(req.Message, "blanked out")).True()
	gt.Value(t, req.Profile["confidence_baseline"]).Equal(6.0)

	// Later levels are check-ins; the baseline never moves.
	f.now = f.now.Add(24 * time.Hour)
	_, err = f.uc.Ledger.RecordCheckin(ctx, scope, "9")
	gt.NoError(t, err).Required()
	sum, err = f.uc.Ledger.Summarize(ctx, scope)
	gt.NoError(t, err).Required()
	gt.Value(t, *sum.Baseline).Equal(6.0)
}

func TestPlanRequestWithBaselineGoesStraightThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	_, err := f.uc.Ledger.RecordBaseline(ctx, scope, "5")
	gt.NoError(t, err).Required()

	res, err := f.uc.Session.HandleMessage(ctx, scope, "give me a plan for this week", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
	gt.Number(t, f.backend.calls()).Equal(1)
}

func TestDoubleSubmitIsANoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.block = make(chan struct{})
	scope := testScope("u1")

	started := make(chan struct{})
	done := make(chan *usecase.TurnResult, 1)
	go func() {
		close(started)
		res, err := f.uc.Session.HandleMessage(ctx, scope, "first message", nil)
		gt.NoError(t, err)
		done <- res
	}()

	<-started
	// Wait for the first send to actually reach the backend.
	for f.backend.calls() == 0 {
		time.Sleep(time.Millisecond)
	}

	res, err := f.uc.Session.HandleMessage(ctx, scope, "second message", nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, res.Ignored).True()

	close(f.backend.block)
	first := <-done
	gt.Bool(t, first.Ignored).False()
	gt.Number(t, f.backend.calls()).Equal(1)
}

func TestBlankCustomLabelNeverReachesTheBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	scope := model.Scope{
		UserID: "u1",
		Focus:  "career",
		Need:   model.Need{Key: types.NeedKeyCustom, Label: "Custom"},
	}

	res, err := f.uc.Session.HandleMessage(ctx, scope, "let's get going", nil)
	gt.NoError(t, err).Required()
	gt.Number(t, f.backend.calls()).Equal(0)
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
	gt.Bool(t, strings.Contains(lastAssistantText(res), "short name")).True()
}

func TestDailyCheckinFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	_, err := f.uc.Ledger.RecordBaseline(ctx, scope, "5")
	gt.NoError(t, err).Required()

	// Next day, an engaged turn arms the daily progress gate.
	f.now = f.now.Add(24 * time.Hour)
	res, err := f.uc.Session.HandleMessage(ctx, scope, "I practiced a bit yesterday", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingDailyProgress)

	// Progress button, yes: confidence question follows.
	res, err = f.uc.Session.HandleDailyProgress(ctx, scope, true, nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingDailyConfidence)
	gt.Bool(t, strings.Contains(lastAssistantText(res), "1-10")).True()

	// The level lands in the history, never on the baseline.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "8", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)

	sum, err := f.uc.Ledger.Summarize(ctx, scope)
	gt.NoError(t, err).Required()
	gt.Value(t, *sum.Baseline).Equal(5.0)
	gt.Value(t, *sum.Today).Equal(8.0)
	gt.Value(t, *sum.Delta).Equal(3.0)

	// Same day, the gate does not re-arm.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "thanks, that helped", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
}

func TestDailyProgressNoIsStillForwarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	_, err := f.uc.Ledger.RecordBaseline(ctx, scope, "5")
	gt.NoError(t, err).Required()

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.uc.Session.HandleMessage(ctx, scope, "hello again, quick question", nil)
	gt.NoError(t, err).Required()

	before := f.backend.calls()
	res, err := f.uc.Session.HandleDailyProgress(ctx, scope, false, nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
	gt.Number(t, f.backend.calls()).Equal(before + 1)

	// Answering outside the gate is ignored.
	res, err = f.uc.Session.HandleDailyProgress(ctx, scope, false, nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, res.Ignored).True()
}

func TestSwitchNeedClearsGates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	// Arm the baseline gate.
	_, err := f.uc.Session.HandleMessage(ctx, scope, "I need a plan", nil)
	gt.NoError(t, err).Required()

	gt.NoError(t, f.uc.Session.SwitchNeed(ctx, scope)).Required()

	// The next plan request starts the gate fresh (pending was dropped).
	res, err := f.uc.Session.HandleMessage(ctx, scope, "can we plan something new", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaseline)
	gt.Number(t, f.backend.calls()).Equal(0)
}

func TestBaselineEligibilityOutlivesTheGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	// The plan request makes the scope baseline-eligible and arms the gate.
	res, err := f.uc.Session.HandleMessage(ctx, scope, "put together a plan for me", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaseline)

	// Switching away drops the gate but not the eligibility.
	gt.NoError(t, f.uc.Session.SwitchNeed(ctx, scope)).Required()

	// A later free-text turn re-arms the gate: the scope still owes a
	// baseline, so the turn never reaches the backend.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "so where were we", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeAwaitingBaseline)
	gt.Number(t, f.backend.calls()).Equal(0)

	// Once a baseline exists the eligibility flag is inert.
	_, err = f.uc.Session.HandleMessage(ctx, scope, "7", nil)
	gt.NoError(t, err).Required()
	res, err = f.uc.Session.HandleMessage(ctx, scope, "I freeze up under pressure", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
	gt.Number(t, f.backend.calls()).Equal(1)
}

// failingSessionStore errors on every state read.
type failingSessionStore struct {
	interfaces.SessionStore
}

func (f *failingSessionStore) UIState(ctx context.Context, scope model.Scope) (model.SessionUIState, error) {
	return model.SessionUIState{}, errors.New("store unavailable")
}

func TestDailyProgressStateLoadFailureReportsNormalMode(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	gateway := coach.NewGateway(backend, coach.WithRetryPolicy(coach.RetryPolicy{MaxAttempts: 1}))
	uc := usecase.New(memory.New(), &failingSessionStore{SessionStore: session.New()}, gateway)

	res, err := uc.Session.HandleDailyProgress(ctx, testScope("u1"), true, nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, res.Ignored).True()
	gt.Value(t, res.Mode).Equal(types.SessionModeNormal)
}

func TestPlanExtractionFromBackendPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	_, err := f.uc.Ledger.RecordBaseline(ctx, scope, "5")
	gt.NoError(t, err).Required()

	f.backend.response = &coach.ChatResponse{
		Messages: []coach.WireMessage{{Role: "assistant", Text: "Here is your plan."}},
		Plan: map[string]any{
			"title": "Interview sprint",
			"tasks": []any{"Practice coding", "Mock interview"},
		},
	}

	res, err := f.uc.Session.HandleMessage(ctx, scope, "give me a plan", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Plan).NotNil().Required()
	gt.Value(t, res.Plan.Title).Equal("Interview sprint")
	gt.Array(t, res.Plan.Steps).Length(2)
	gt.Bool(t, strings.HasPrefix(res.UI.Mermaid, "flowchart TD")).True()
	gt.Bool(t, res.UI.ShowPlanSidebar).True()

	// The extracted plan lands in the conversation tier, not the durable one.
	conv, err := f.uc.Sync.ListPlans(ctx, scope.UserID)
	gt.NoError(t, err).Required()
	gt.Array(t, conv).Length(0)

	found, err := f.uc.Sync.FindPlan(ctx, scope.UserID, scope.Focus, res.Plan.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, found.Title).Equal("Interview sprint")
}

func TestPlanExtractionFromAssistantText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")

	_, err := f.uc.Ledger.RecordBaseline(ctx, scope, "5")
	gt.NoError(t, err).Required()

	f.backend.response = &coach.ChatResponse{
		Messages: []coach.WireMessage{{
			Role: "assistant",
			Text: "Try this:\n1. Solve two problems daily\n2. One mock interview per week\n3. Review mistakes on Sunday",
		}},
	}

	res, err := f.uc.Session.HandleMessage(ctx, scope, "what should I do", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Plan).NotNil().Required()
	gt.Array(t, res.Plan.Steps).Length(3)
}

func TestBackendFailureIsReportedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := testScope("u1")
	f.backend.err = coach.ErrNetwork

	res, err := f.uc.Session.HandleMessage(ctx, scope, "hello there", nil)
	gt.NoError(t, err).Required()
	first := lastAssistantText(res)
	gt.Bool(t, strings.Contains(first, "couldn't reach")).True()

	// The identical failure on the next turn adds no second error row.
	res, err = f.uc.Session.HandleMessage(ctx, scope, "are you there", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, lastAssistantText(res)).Equal("")

	// A different failure class is reported again.
	f.backend.err = coach.ErrTimeout
	res, err = f.uc.Session.HandleMessage(ctx, scope, "still nothing?", nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(lastAssistantText(res), "longer than usual")).True()
}
