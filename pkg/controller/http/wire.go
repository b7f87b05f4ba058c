package http

import (
	"time"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

// Wire types for the JSON API. Domain models stay tag-free; this layer owns
// the field naming contract with the frontend.

type messageWire struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	PlanID string `json:"plan_id,omitempty"`
	TS     string `json:"ts"`
}

func toMessageWire(m model.Message) messageWire {
	return messageWire{
		ID:     m.ID.String(),
		Role:   m.Role.String(),
		Kind:   m.Kind.String(),
		Text:   m.Text,
		PlanID: m.PlanID.String(),
		TS:     m.TS.UTC().Format(time.RFC3339),
	}
}

func toMessageWires(msgs []model.Message) []messageWire {
	out := make([]messageWire, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageWire(m)
	}
	return out
}

type resourceWire struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
}

type planStepWire struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Resources []resourceWire `json:"resources,omitempty"`
}

type milestoneWire struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type planWire struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Goal       string          `json:"goal,omitempty"`
	Focus      string          `json:"focus,omitempty"`
	NeedKey    string          `json:"need_key,omitempty"`
	NeedLabel  string          `json:"need_label,omitempty"`
	Steps      []planStepWire  `json:"steps"`
	Milestones []milestoneWire `json:"milestones,omitempty"`
	CreatedAt  string          `json:"created_at"`
	AcceptedAt string          `json:"accepted_at,omitempty"`
}

func toPlanWire(p *model.Plan) *planWire {
	if p == nil {
		return nil
	}
	w := &planWire{
		ID:        p.ID.String(),
		Title:     p.Title,
		Goal:      p.Goal,
		Focus:     p.Focus,
		NeedKey:   p.NeedKey.String(),
		NeedLabel: p.NeedLabel,
		Steps:     make([]planStepWire, len(p.Steps)),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	for i, s := range p.Steps {
		sw := planStepWire{ID: s.ID, Label: s.Label}
		for _, res := range s.Resources {
			sw.Resources = append(sw.Resources, resourceWire{Title: res.Title, URL: res.URL, Type: res.Type})
		}
		w.Steps[i] = sw
	}
	for _, m := range p.Milestones {
		w.Milestones = append(w.Milestones, milestoneWire{Name: m.Name, Status: m.Status})
	}
	if p.AcceptedAt != nil {
		w.AcceptedAt = p.AcceptedAt.UTC().Format(time.RFC3339)
	}
	return w
}

func toPlanWires(plans []*model.Plan) []*planWire {
	out := make([]*planWire, len(plans))
	for i, p := range plans {
		out[i] = toPlanWire(p)
	}
	return out
}

type confidenceWire struct {
	Baseline *float64 `json:"baseline"`
	Today    *float64 `json:"today"`
	Latest   *float64 `json:"latest"`
	Delta    *float64 `json:"delta"`
}

func toConfidenceWire(s model.ConfidenceSummary) confidenceWire {
	return confidenceWire{
		Baseline: s.Baseline,
		Today:    s.Today,
		Latest:   s.Latest,
		Delta:    s.Delta,
	}
}

type uiStateWire struct {
	Mode            string `json:"mode"`
	Engaged         bool   `json:"engaged"`
	ShowPlanSidebar bool   `json:"show_plan_sidebar"`
	PlanLink        string `json:"plan_link,omitempty"`
	Mermaid         string `json:"mermaid,omitempty"`
}

func toUIStateWire(s model.SessionUIState) uiStateWire {
	return uiStateWire{
		Mode:            s.Mode.String(),
		Engaged:         s.Engaged,
		ShowPlanSidebar: s.ShowPlanSidebar,
		PlanLink:        s.PlanLink,
		Mermaid:         s.Mermaid,
	}
}
