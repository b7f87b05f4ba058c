package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/service/needs"
	"github.com/everlift-app/everlift/pkg/service/plan"
	"github.com/everlift-app/everlift/pkg/utils/async"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// Stable IDs for upserted system prompts. Transcripts are scoped per
// (user, focus, need), so constant IDs are unique where it matters and a
// re-emitted prompt replaces its older copy instead of accumulating.
const (
	baselinePromptID   = types.MessageID("system-baseline-prompt")
	reasonPromptID     = types.MessageID("system-baseline-reason")
	dailyProgressID    = types.MessageID("system-daily-progress")
	dailyConfidenceID  = types.MessageID("system-daily-confidence")
	invalidLevelNoteID = types.MessageID("system-invalid-level")
)

const (
	baselinePromptText = "Quick calibration before we build this: on a scale of 1-10, how confident do you feel right now?"
	reasonPromptText   = "Got it. What makes it a %s for you today?"
	dailyProgressText  = "Did you make progress on this since we last talked?"
	dailyConfText      = "Nice. Where is your confidence today, 1-10?"
	invalidLevelText   = "Please reply with a number from 1 to 10."
	blankCustomText    = "Tell me what you'd like to work on first — give your custom topic a short name and we'll take it from there."
)

// EngagementPolicy decides whether a classified message counts as "the user
// has engaged this visit". The exact heuristic has churned historically, so it
// is a parameter, not a contract.
type EngagementPolicy func(class MessageClass) bool

// DefaultEngagement counts any non-greeting message.
func DefaultEngagement(class MessageClass) bool {
	return class != ClassGreeting
}

// TurnResult is what one user turn produced.
type TurnResult struct {
	// Ignored is set when the submission was dropped by the sending guard.
	Ignored bool
	// Messages are the rows added to the transcript this turn, in order.
	Messages []model.Message
	Plan     *model.Plan
	Mode     types.SessionMode
	UI       coach.UIHints
}

// SessionUseCase is the finite-state machine tying the registry, ledger,
// extractor, gateway and synchronizer together.
type SessionUseCase struct {
	ledger     *LedgerUseCase
	sync       *SyncUseCase
	gateway    *coach.Gateway
	registry   *needs.Registry
	extractor  *plan.Extractor
	classifier *Classifier
	engagement EngagementPolicy
	coachName  string
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	mu      sync.Mutex
	sending bool
}

func NewSessionUseCase(ledger *LedgerUseCase, syncUC *SyncUseCase, gateway *coach.Gateway, registry *needs.Registry, extractor *plan.Extractor) *SessionUseCase {
	return &SessionUseCase{
		ledger:     ledger,
		sync:       syncUC,
		gateway:    gateway,
		registry:   registry,
		extractor:  extractor,
		classifier: NewClassifier(),
		engagement: DefaultEngagement,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithEngagementPolicy overrides the engagement heuristic.
func (uc *SessionUseCase) WithEngagementPolicy(p EngagementPolicy) *SessionUseCase {
	uc.engagement = p
	return uc
}

// WithCoachName sets the coach identifier forwarded to the backend.
func (uc *SessionUseCase) WithCoachName(name string) *SessionUseCase {
	uc.coachName = name
	return uc
}

// WithClock overrides the time source. Used by tests.
func (uc *SessionUseCase) WithClock(now func() time.Time) *SessionUseCase {
	uc.now = now
	return uc
}

func (uc *SessionUseCase) lockFor(scope model.Scope) *scopeLock {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.locks == nil {
		uc.locks = make(map[string]*scopeLock)
	}
	key := scope.Key()
	if l, ok := uc.locks[key]; ok {
		return l
	}
	l := &scopeLock{}
	uc.locks[key] = l
	return l
}

// OpenSession hydrates the scope and kicks off background history
// reconciliation. The machine resumes from the persisted mode, so a reload
// mid-gate lands back in the same state.
func (uc *SessionUseCase) OpenSession(ctx context.Context, scope model.Scope) (*Snapshot, error) {
	snap, err := uc.sync.Hydrate(ctx, scope)
	if err != nil {
		return nil, err
	}
	uc.reconcileHistory(ctx, scope)
	return snap, nil
}

// reconcileHistory fetches the backend transcript in the background and
// appends rows missing locally. Already-rendered messages are never reordered.
func (uc *SessionUseCase) reconcileHistory(ctx context.Context, scope model.Scope) {
	async.Dispatch(ctx, func(ctx context.Context) error {
		fetched, err := uc.gateway.History(ctx, coach.HistoryQuery{
			UserID: scope.UserID.String(),
			Topic:  scope.Need.Slug(),
			Coach:  uc.coachName,
		})
		if err != nil {
			// Reconciliation is best-effort; the local transcript stands.
			logging.From(ctx).Warn("history reconciliation skipped", "error", err.Error())
			return nil
		}

		local, err := uc.sync.repo.Transcript().List(ctx, scope)
		if err != nil {
			return goerr.Wrap(err, "failed to load transcript for reconciliation")
		}
		merged := coach.MergeHistory(local, fetched)
		for _, msg := range merged[len(local):] {
			if err := uc.sync.repo.Transcript().Append(ctx, scope, msg); err != nil {
				return goerr.Wrap(err, "failed to append reconciled row")
			}
		}
		return nil
	})
}

// HandleMessage runs one user turn through the state machine.
func (uc *SessionUseCase) HandleMessage(ctx context.Context, scope model.Scope, text string, profile map[string]any) (*TurnResult, error) {
	// A second submit while one is in flight is a no-op, not queued.
	lock := uc.lockFor(scope)
	lock.mu.Lock()
	if lock.sending {
		lock.mu.Unlock()
		return &TurnResult{Ignored: true}, nil
	}
	lock.sending = true
	lock.mu.Unlock()
	defer func() {
		lock.mu.Lock()
		lock.sending = false
		lock.mu.Unlock()
	}()

	// A blank custom need never reaches the backend and never transitions.
	if scope.Need.Key.IsCustom() && scope.Need.Slug() == "" {
		note := model.NewAssistantMessage(blankCustomText, uc.now())
		return &TurnResult{
			Messages: []model.Message{note},
			Mode:     types.SessionModeNormal,
		}, nil
	}

	state, err := uc.sync.sessions.UIState(ctx, scope)
	if err != nil {
		state = model.SessionUIState{Mode: types.SessionModeNormal}
	}

	class := uc.classifier.Classify(text, state.Mode.ExpectsLevel())
	if uc.engagement(class) {
		state.Engaged = true
	}
	if class == ClassPlanRequest {
		state.ReadyForBaseline = true
	}

	result := &TurnResult{}
	userMsg := model.NewUserMessage(text, uc.now())
	uc.appendRow(ctx, scope, userMsg, result)

	switch state.Mode {
	case types.SessionModeAwaitingBaseline:
		err = uc.onAwaitingBaseline(ctx, scope, &state, text, class, result)
	case types.SessionModeAwaitingBaselineReason:
		err = uc.onAwaitingReason(ctx, scope, &state, text, profile, result)
	case types.SessionModeAwaitingDailyProgress:
		// Free text during the button-driven gate falls through to a normal
		// turn; the prompt stays in the transcript until answered or stale.
		state.Mode = types.SessionModeNormal
		err = uc.onNormal(ctx, scope, &state, text, class, profile, result)
	case types.SessionModeAwaitingDailyConfidence:
		err = uc.onAwaitingDailyConfidence(ctx, scope, &state, text, profile, result)
	default:
		err = uc.onNormal(ctx, scope, &state, text, class, profile, result)
	}
	if err != nil {
		return nil, err
	}

	uc.maybePromptDailyCheckin(ctx, scope, &state, result)

	result.Mode = state.Mode
	if err := uc.sync.sessions.PutUIState(ctx, scope, state); err != nil {
		logging.From(ctx).Warn("failed to persist session state", "error", err.Error())
	}
	return result, nil
}

func (uc *SessionUseCase) onNormal(ctx context.Context, scope model.Scope, state *model.SessionUIState, text string, class MessageClass, profile map[string]any, result *TurnResult) error {
	if class == ClassPlanRequest || state.ReadyForBaseline {
		rec, err := uc.ledger.Record(ctx, scope)
		if err != nil {
			return err
		}
		if !rec.HasBaseline() {
			// Defer the request: gate on the baseline question first.
			state.PendingRequest = text
			uc.setMode(state, types.SessionModeAwaitingBaseline)
			uc.upsertRow(ctx, scope, model.NewSystemPrompt(baselinePromptID, baselinePromptText, uc.now()), result)
			return nil
		}
	}
	return uc.forward(ctx, scope, state, text, profile, result)
}

func (uc *SessionUseCase) onAwaitingBaseline(ctx context.Context, scope model.Scope, state *model.SessionUIState, text string, class MessageClass, result *TurnResult) error {
	if class != ClassNumeric {
		uc.upsertRow(ctx, scope, model.NewSystemPrompt(invalidLevelNoteID, invalidLevelText, uc.now()), result)
		return nil
	}

	level, err := uc.ledger.RecordBaseline(ctx, scope, text)
	if err != nil {
		return err
	}

	// The answered prompt comes out of the transcript before the follow-up
	// question goes in.
	uc.removeRow(ctx, scope, baselinePromptID)
	uc.removeRow(ctx, scope, invalidLevelNoteID)
	uc.setMode(state, types.SessionModeAwaitingBaselineReason)
	uc.upsertRow(ctx, scope, model.NewSystemPrompt(reasonPromptID,
		fmt.Sprintf(reasonPromptText, formatLevel(level)), uc.now()), result)
	return nil
}

func (uc *SessionUseCase) onAwaitingReason(ctx context.Context, scope model.Scope, state *model.SessionUIState, text string, profile map[string]any, result *TurnResult) error {
	uc.removeRow(ctx, scope, reasonPromptID)
	uc.setMode(state, types.SessionModeNormal)

	// One enriched request: the deferred plan request plus the user's reason.
	combined := text
	if pending := state.ConsumePending(); pending != "" {
		combined = pending + "\n\nContext from me: " + text
	}
	if summary, err := uc.ledger.Summarize(ctx, scope); err == nil && summary.Baseline != nil {
		if profile == nil {
			profile = make(map[string]any)
		}
		profile["confidence_baseline"] = *summary.Baseline
	}
	return uc.forward(ctx, scope, state, combined, profile, result)
}

// HandleDailyProgress applies the button-driven answer to the daily progress
// question.
func (uc *SessionUseCase) HandleDailyProgress(ctx context.Context, scope model.Scope, madeProgress bool, profile map[string]any) (*TurnResult, error) {
	state, err := uc.sync.sessions.UIState(ctx, scope)
	if err != nil {
		state = model.SessionUIState{Mode: types.SessionModeNormal}
	}
	if !state.AwaitingDailyProgress() {
		return &TurnResult{Ignored: true, Mode: state.Mode}, nil
	}

	result := &TurnResult{}
	uc.removeRow(ctx, scope, dailyProgressID)

	answer := "I made progress"
	if !madeProgress {
		answer = "No progress yet"
	}
	row := model.NewUserMessage(answer, uc.now())
	row.Kind = types.MessageKindDailyProgress
	uc.appendRow(ctx, scope, row, result)

	if madeProgress {
		uc.setMode(&state, types.SessionModeAwaitingDailyConfidence)
		uc.upsertRow(ctx, scope, model.NewSystemPrompt(dailyConfidenceID, dailyConfText, uc.now()), result)
	} else {
		uc.setMode(&state, types.SessionModeNormal)
		if err := uc.forward(ctx, scope, &state,
			"I didn't make progress on this since last time. Can you give me a small encouraging next step?",
			profile, result); err != nil {
			return nil, err
		}
	}

	result.Mode = state.Mode
	if err := uc.sync.sessions.PutUIState(ctx, scope, state); err != nil {
		logging.From(ctx).Warn("failed to persist session state", "error", err.Error())
	}
	return result, nil
}

func (uc *SessionUseCase) onAwaitingDailyConfidence(ctx context.Context, scope model.Scope, state *model.SessionUIState, text string, profile map[string]any, result *TurnResult) error {
	level, err := uc.ledger.RecordCheckin(ctx, scope, text)
	if err != nil {
		if !errors.Is(err, ErrInvalidLevel) {
			return err
		}
		uc.upsertRow(ctx, scope, model.NewSystemPrompt(invalidLevelNoteID, invalidLevelText, uc.now()), result)
		return nil
	}

	uc.removeRow(ctx, scope, dailyConfidenceID)
	uc.removeRow(ctx, scope, invalidLevelNoteID)
	uc.setMode(state, types.SessionModeNormal)

	reflection := fmt.Sprintf("I just logged my confidence at %s/10 for %s. Reflect briefly on that with me.",
		formatLevel(level), scope.Need.DisplayLabel())
	return uc.forward(ctx, scope, state, reflection, profile, result)
}

// SwitchNeed clears transient gates when the active need (or its custom
// label) changes. Stale system prompts come out of the old transcript; each
// need's own ledger entry is preserved.
func (uc *SessionUseCase) SwitchNeed(ctx context.Context, oldScope model.Scope) error {
	state, err := uc.sync.sessions.UIState(ctx, oldScope)
	if err != nil {
		return goerr.Wrap(err, "failed to load session state", goerr.V(ScopeKey, oldScope.Key()))
	}
	state.ResetTransient()
	if err := uc.sync.sessions.PutUIState(ctx, oldScope, state); err != nil {
		return goerr.Wrap(err, "failed to persist session state", goerr.V(ScopeKey, oldScope.Key()))
	}
	for _, id := range []types.MessageID{baselinePromptID, reasonPromptID, dailyProgressID, dailyConfidenceID, invalidLevelNoteID} {
		uc.removeRow(ctx, oldScope, id)
	}
	return nil
}

// maybePromptDailyCheckin arms the daily progress gate when a baseline exists,
// no check-in happened today, the user engaged this visit, and no other gate
// is armed.
func (uc *SessionUseCase) maybePromptDailyCheckin(ctx context.Context, scope model.Scope, state *model.SessionUIState, result *TurnResult) {
	if state.Mode != types.SessionModeNormal || !state.Engaged {
		return
	}
	due, err := uc.ledger.CheckinDueToday(ctx, scope)
	if err != nil || !due {
		return
	}
	uc.setMode(state, types.SessionModeAwaitingDailyProgress)
	uc.upsertRow(ctx, scope, model.NewSystemPrompt(dailyProgressID, dailyProgressText, uc.now()), result)
}

// forward sends the text to the coaching backend and applies the result:
// assistant rows, plan extraction, conversation-plan tracking.
func (uc *SessionUseCase) forward(ctx context.Context, scope model.Scope, state *model.SessionUIState, text string, profile map[string]any, result *TurnResult) error {
	resp, err := uc.gateway.Chat(ctx, &coach.ChatRequest{
		UserID:  scope.UserID.String(),
		Message: text,
		Coach:   uc.coachName,
		Topic:   scope.Need.Slug(),
		Profile: profile,
	})
	if err != nil {
		if coach.IsStale(err) {
			// Superseded by a newer request; nothing to apply.
			return nil
		}
		uc.reportFailure(ctx, scope, err, result)
		return nil
	}

	uc.applyResponse(ctx, scope, state, resp, result)
	return nil
}

func (uc *SessionUseCase) applyResponse(ctx context.Context, scope model.Scope, state *model.SessionUIState, resp *coach.ChatResponse, result *TurnResult) {
	now := uc.now()
	var firstText string
	for _, wm := range resp.Messages {
		msg := wm.ToMessage(now)
		if firstText == "" && msg.Role == types.RoleAssistant {
			firstText = msg.Text
		}
		uc.appendRow(ctx, scope, msg, result)
	}

	p := uc.extractor.FromPayload(resp.Plan, scope, now)
	if p == nil && firstText != "" {
		p = uc.extractor.FromText(firstText, scope, now)
	}
	if p != nil {
		uc.sync.TrackConversationPlan(ctx, scope.UserID, scope.Focus, p)
		planRow := model.NewAssistantMessage(p.Title, now)
		planRow.Kind = types.MessageKindPlan
		planRow.PlanID = p.ID
		uc.appendRow(ctx, scope, planRow, result)
		result.Plan = p
	}

	result.UI = resp.UI
	if result.UI.Mermaid == "" && p != nil {
		result.UI.Mermaid = plan.Mermaid(p)
		result.UI.ShowPlanSidebar = true
	}
	state.ShowPlanSidebar = result.UI.ShowPlanSidebar
	state.PlanLink = result.UI.PlanLink
	state.Mermaid = result.UI.Mermaid
}

// HandleVoice submits a recorded voice note. A placeholder row renders while
// the upload is in flight and is patched in place once the backend returns
// the transcript. The caller owns closing the audio reader.
func (uc *SessionUseCase) HandleVoice(ctx context.Context, scope model.Scope, req *coach.VoiceRequest) (*TurnResult, error) {
	lock := uc.lockFor(scope)
	lock.mu.Lock()
	if lock.sending {
		lock.mu.Unlock()
		return &TurnResult{Ignored: true}, nil
	}
	lock.sending = true
	lock.mu.Unlock()
	defer func() {
		lock.mu.Lock()
		lock.sending = false
		lock.mu.Unlock()
	}()

	state, err := uc.sync.sessions.UIState(ctx, scope)
	if err != nil {
		state = model.SessionUIState{Mode: types.SessionModeNormal}
	}
	state.Engaged = true

	result := &TurnResult{}
	placeholder := model.NewUserMessage("Voice note (transcribing...)", uc.now())
	uc.appendRow(ctx, scope, placeholder, result)

	req.UserID = scope.UserID.String()
	req.Topic = scope.Need.Slug()
	if req.Coach == "" {
		req.Coach = uc.coachName
	}

	resp, err := uc.gateway.Voice(ctx, req)
	if err != nil {
		uc.removeRow(ctx, scope, placeholder.ID)
		result.Messages = result.Messages[:0]
		if !coach.IsStale(err) {
			uc.reportFailure(ctx, scope, err, result)
		}
		result.Mode = state.Mode
		return result, nil
	}

	placeholder.Text = resp.Transcript
	placeholder.TS = uc.now()
	if err := uc.sync.repo.Transcript().Upsert(ctx, scope, placeholder); err != nil {
		logging.From(ctx).Warn("failed to patch voice placeholder", "error", err.Error())
	}
	result.Messages[0] = placeholder

	if resp.Chat != nil {
		uc.applyResponse(ctx, scope, &state, resp.Chat, result)
	}
	uc.maybePromptDailyCheckin(ctx, scope, &state, result)

	result.Mode = state.Mode
	if err := uc.sync.sessions.PutUIState(ctx, scope, state); err != nil {
		logging.From(ctx).Warn("failed to persist session state", "error", err.Error())
	}
	return result, nil
}

// reportFailure surfaces a single user-visible error row, suppressed when the
// immediately preceding row already reported the same failure class.
func (uc *SessionUseCase) reportFailure(ctx context.Context, scope model.Scope, err error, result *TurnResult) {
	kind := coach.KindOf(err)
	text := coach.UserMessage(kind)
	logging.From(ctx).Warn("coach request failed", "kind", kind.String(), "error", err.Error())

	// Suppressed when the most recent assistant row already carries the same
	// copy, so a flapping backend reports each failure class once.
	rows, listErr := uc.sync.repo.Transcript().List(ctx, scope)
	if listErr == nil {
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i].Role != types.RoleAssistant {
				continue
			}
			if rows[i].Text == text {
				return
			}
			break
		}
	}
	uc.appendRow(ctx, scope, model.NewAssistantMessage(text, uc.now()), result)
}

// setMode is the single transition choke point: because the mode is one enum
// value, arming one gate structurally disarms every other.
func (uc *SessionUseCase) setMode(state *model.SessionUIState, mode types.SessionMode) {
	state.Mode = mode
}

func (uc *SessionUseCase) appendRow(ctx context.Context, scope model.Scope, msg model.Message, result *TurnResult) {
	if err := uc.sync.repo.Transcript().Append(ctx, scope, msg); err != nil {
		logging.From(ctx).Warn("failed to append transcript row", "error", err.Error())
	}
	result.Messages = append(result.Messages, msg)
}

func (uc *SessionUseCase) upsertRow(ctx context.Context, scope model.Scope, msg model.Message, result *TurnResult) {
	if err := uc.sync.repo.Transcript().Upsert(ctx, scope, msg); err != nil {
		logging.From(ctx).Warn("failed to upsert transcript row", "error", err.Error())
	}
	result.Messages = append(result.Messages, msg)
}

func (uc *SessionUseCase) removeRow(ctx context.Context, scope model.Scope, id types.MessageID) {
	if err := uc.sync.repo.Transcript().Remove(ctx, scope, id); err != nil {
		logging.From(ctx).Warn("failed to remove transcript row", "error", err.Error())
	}
}

func formatLevel(level float64) string {
	s := fmt.Sprintf("%.1f", level)
	return strings.TrimSuffix(s, ".0")
}
