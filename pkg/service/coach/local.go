package coach

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// Local is an in-process coaching backend for development, driven by a gollem
// LLM client. Routing is deterministic; the model only fills in free text and
// task suggestions, so the orchestrator can be exercised without a deployed
// backend.
type Local struct {
	llm gollem.LLMClient

	mu    sync.Mutex
	users map[string]*localUserState
}

type localUserState struct {
	history         []WireMessage
	discoveryAsked  int
	discoveryAnswer map[string]string
	activePlan      map[string]any
	activeTopic     string
}

var _ Backend = &Local{}

// NewLocal creates the development backend. The LLM client may be nil, in
// which case canned text and the fallback task list are used throughout.
func NewLocal(llm gollem.LLMClient) *Local {
	return &Local{
		llm:   llm,
		users: make(map[string]*localUserState),
	}
}

var (
	localNewPlanRe = regexp.MustCompile(`\b(new plan|start over|restart|redo|re-do|replace the plan)\b`)
	localPlanRe    = regexp.MustCompile(`\b(plan|roadmap|schedule|prep|prepare|help me|organize|game plan)\b`)
	localSkipRe    = regexp.MustCompile(`\b(skip|just chat|no plan|stop|not now)\b`)
	localNumPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
)

var localDiscoveryQuestions = []string{
	"When is the deadline (or when do you want to feel ready)? If you're not sure, just say \"soon.\"",
	"What's the main thing you want to get better at? One phrase is fine.",
}

// localFallbackTasks guarantees a drafted plan is never empty.
var localFallbackTasks = []string{
	"Write a 6-8 line story: your background + what you want + why.",
	"Review core concepts and make a 1-page cheat sheet.",
	"Do one mock interview question and write a better second answer.",
	"Pick 2 projects and practice explaining them in 2 minutes each.",
	"Practice 5 common behavioral questions with STAR format.",
	"Review one system design pattern relevant to the role.",
	"Do 30 minutes of coding practice (easy/medium).",
	"Create a checklist for interview day and logistics.",
}

func (l *Local) state(userID string) *localUserState {
	if st, ok := l.users[userID]; ok {
		return st
	}
	st := &localUserState{discoveryAnswer: make(map[string]string)}
	l.users[userID] = st
	return st
}

// Chat routes one user turn deterministically: skip wins, then new-plan, then
// plan request (discovery up to 2 questions, then draft), otherwise free chat.
func (l *Local) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, goerr.Wrap(ErrServer, "empty message")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(req.UserID)
	now := time.Now().UTC()
	text := strings.ToLower(req.Message)

	st.pushHistory("user", req.Message, "", now)

	var resp *ChatResponse
	switch {
	case localSkipRe.MatchString(text):
		resp = l.freeChat(ctx, st, req)
	case st.discoveryAsked > 0 && st.activePlan == nil:
		resp = l.continueDiscovery(ctx, st, req)
	case localNewPlanRe.MatchString(text),
		localPlanRe.MatchString(text) && (st.activePlan == nil || st.activeTopic != req.Topic):
		resp = l.startDiscovery(st, req)
	case localPlanRe.MatchString(text) && st.activePlan != nil:
		resp = l.refinePlan(ctx, st, req)
	default:
		resp = l.freeChat(ctx, st, req)
	}

	for _, msg := range resp.Messages {
		st.pushHistory(msg.Role, msg.Text, msg.Kind, now)
	}
	return resp, nil
}

// History returns the rows accumulated for the user.
func (l *Local) History(ctx context.Context, q HistoryQuery) ([]model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(q.UserID)
	now := time.Now().UTC()
	rows := make([]model.Message, 0, len(st.history))
	for _, wm := range st.history {
		rows = append(rows, wm.ToMessage(now))
	}
	return rows, nil
}

// Voice is not supported by the development backend.
func (l *Local) Voice(ctx context.Context, req *VoiceRequest) (*VoiceResponse, error) {
	return nil, goerr.Wrap(ErrServer, "voice is not supported by the local backend")
}

func (l *Local) startDiscovery(st *localUserState, req *ChatRequest) *ChatResponse {
	st.activeTopic = req.Topic
	st.activePlan = nil
	st.discoveryAsked = 1
	st.discoveryAnswer = make(map[string]string)
	return textResponse(localDiscoveryQuestions[0], "PLAN_BUILD")
}

func (l *Local) continueDiscovery(ctx context.Context, st *localUserState, req *ChatRequest) *ChatResponse {
	switch st.discoveryAsked {
	case 1:
		st.discoveryAnswer["deadline"] = strings.TrimSpace(req.Message)
	case 2:
		st.discoveryAnswer["target"] = strings.TrimSpace(req.Message)
	}
	if st.discoveryAsked < len(localDiscoveryQuestions) {
		q := localDiscoveryQuestions[st.discoveryAsked]
		st.discoveryAsked++
		return textResponse(q, "PLAN_BUILD")
	}
	return l.draftPlan(ctx, st, req)
}

func (l *Local) draftPlan(ctx context.Context, st *localUserState, req *ChatRequest) *ChatResponse {
	tasks := l.suggestTasks(ctx, st, req)

	entries := make([]any, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, map[string]any{"text": t, "status": "todo"})
	}
	topic := req.Topic
	if topic == "" {
		topic = "general"
	}
	plan := map[string]any{
		"title": planTitle(topic),
		"goal":  fmt.Sprintf("Make steady progress on %s", strings.ReplaceAll(topic, "_", " ")),
		"tasks": entries,
		"milestones": []any{
			map[string]any{"name": "Get clarity", "status": "done"},
			map[string]any{"name": "Build reps", "status": "in_progress"},
			map[string]any{"name": "Polish & confidence", "status": "todo"},
		},
	}
	st.activePlan = plan
	st.activeTopic = req.Topic
	st.discoveryAsked = 0

	return &ChatResponse{
		Messages: []WireMessage{{
			Role: "assistant",
			Text: fmt.Sprintf("Awesome — I made a starter plan for **%s**.\nWant it more intense or more lightweight?", plan["title"]),
			Kind: types.MessageKindPlan.String(),
		}},
		Plan: plan,
		UI:   UIHints{Mode: "PLAN_BUILD", ShowPlanSidebar: true},
	}
}

func (l *Local) refinePlan(ctx context.Context, st *localUserState, req *ChatRequest) *ChatResponse {
	// Same plan, not a new one: re-emit the active plan so the client's
	// dedup-by-id keeps a single entry.
	return &ChatResponse{
		Messages: []WireMessage{{
			Role: "assistant",
			Text: "Done — I kept your current plan (same plan, not a new one).\nWhat do you want to tackle *today*?",
			Kind: types.MessageKindPlan.String(),
		}},
		Plan: st.activePlan,
		UI:   UIHints{Mode: "PLAN_BUILD", ShowPlanSidebar: true},
	}
}

func (l *Local) freeChat(ctx context.Context, st *localUserState, req *ChatRequest) *ChatResponse {
	text := l.generate(ctx,
		"You are a friendly, concise confidence coach. Keep responses short and natural. Do not create a plan unless the user asks for one.",
		req.Message)
	if text == "" {
		text = "I'm here. Tell me a bit more about what's on your mind."
	}
	showSidebar := st.activePlan != nil
	resp := textResponse(text, "CHAT")
	resp.UI.ShowPlanSidebar = showSidebar
	return resp
}

// suggestTasks asks the LLM for a bullet list of tasks, falling back to the
// canned list when the model is unavailable or returns nothing usable.
func (l *Local) suggestTasks(ctx context.Context, st *localUserState, req *ChatRequest) []string {
	raw := l.generate(ctx,
		"You are a practical, concise coach. Suggest a simple improvement plan. Return ONLY a bullet list of actionable tasks, each doable in 30-90 minutes.",
		fmt.Sprintf("Topic: %s\nDeadline: %s\nTarget: %s\nUser context: %s\nGive 8-10 tasks.",
			req.Topic,
			valueOr(st.discoveryAnswer["deadline"], "soon"),
			valueOr(st.discoveryAnswer["target"], "mixed"),
			req.Message))

	var tasks []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = localNumPrefix.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		tasks = append(tasks, line)
		if len(tasks) >= 10 {
			break
		}
	}
	if len(tasks) == 0 {
		return localFallbackTasks
	}
	return tasks
}

func (l *Local) generate(ctx context.Context, system, user string) string {
	if l.llm == nil {
		return ""
	}
	agent := gollem.New(l.llm, gollem.WithSystemPrompt(system))
	resp, err := agent.Execute(ctx, gollem.Text(user))
	if err != nil {
		logging.From(ctx).Warn("local coach generation failed", "error", err.Error())
		return ""
	}
	return strings.TrimSpace(strings.Join(resp.Texts, "\n"))
}

func (st *localUserState) pushHistory(role, text, kind string, now time.Time) {
	st.history = append(st.history, WireMessage{
		Role: role,
		Text: text,
		Kind: kind,
		TS:   now.Format(time.RFC3339),
	})
	// Cap mirrors the production backend's transcript window.
	if len(st.history) > 80 {
		st.history = st.history[len(st.history)-80:]
	}
}

func textResponse(text, mode string) *ChatResponse {
	return &ChatResponse{
		Messages: []WireMessage{{Role: "assistant", Text: text, Kind: types.MessageKindText.String()}},
		UI:       UIHints{Mode: mode},
	}
}

func planTitle(topic string) string {
	words := strings.Fields(strings.ReplaceAll(topic, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + " Plan"
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
