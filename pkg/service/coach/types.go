package coach

import (
	"context"
	"io"
	"time"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Backend is the opaque coaching backend. How it decides what to say is not
// this system's concern; it is a function from request to response.
type Backend interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	History(ctx context.Context, q HistoryQuery) ([]model.Message, error)
	Voice(ctx context.Context, req *VoiceRequest) (*VoiceResponse, error)
}

// ChatRequest is one user turn sent to the backend.
type ChatRequest struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	Coach   string         `json:"coach,omitempty"`
	Topic   string         `json:"topic,omitempty"`
	Profile map[string]any `json:"profile,omitempty"`
}

// WireMessage is a backend-declared transcript row.
type WireMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   string `json:"ts,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// UIHints are backend-suggested presentation hints.
type UIHints struct {
	Mode            string `json:"mode"`
	ShowPlanSidebar bool   `json:"show_plan_sidebar"`
	PlanLink        string `json:"plan_link,omitempty"`
	Mermaid         string `json:"mermaid,omitempty"`
}

// ChatResponse is the backend's reply. Plan is kept dynamically shaped here;
// the plan extractor normalizes it before any downstream component sees it.
type ChatResponse struct {
	Messages []WireMessage  `json:"messages"`
	Plan     map[string]any `json:"plan,omitempty"`
	UI       UIHints        `json:"ui"`
}

// HistoryQuery addresses one backend transcript for reconciliation.
type HistoryQuery struct {
	UserID string
	Topic  string
	Coach  string
}

// VoiceRequest is a multipart voice submission. Audio is read exactly once and
// the caller retains closing responsibility.
type VoiceRequest struct {
	UserID      string
	Coach       string
	Topic       string
	ProfileJSON string
	Filename    string
	Audio       io.Reader
}

// VoiceResponse carries the transcript and the resulting chat turn.
type VoiceResponse struct {
	Transcript string        `json:"transcript"`
	Chat       *ChatResponse `json:"chat"`
}

// ToMessage converts a wire row into a transcript message. Unknown kinds and
// roles degrade to assistant text rather than failing the merge.
func (wm WireMessage) ToMessage(now time.Time) model.Message {
	role, err := types.ParseRole(wm.Role)
	if err != nil {
		role = types.RoleAssistant
	}
	kind, err := types.ParseMessageKind(wm.Kind)
	if err != nil {
		kind = types.MessageKindText
	}
	ts := now
	if wm.TS != "" {
		if parsed, err := time.Parse(time.RFC3339, wm.TS); err == nil {
			ts = parsed
		}
	}
	return model.Message{
		ID:   types.NewMessageID(),
		Role: role,
		Kind: kind,
		Text: wm.Text,
		TS:   ts,
	}
}
