package model

import (
	"time"

	"github.com/everlift-app/everlift/pkg/domain/types"
)

// Resource is a learning link attached to a plan step.
type Resource struct {
	Title string
	URL   string
	Type  string
}

// PlanStep is one ordered step of a plan.
type PlanStep struct {
	ID        string
	Label     string
	Resources []Resource
}

// Milestone is a coarse progress marker attached to locally drafted plans.
type Milestone struct {
	Name   string
	Status string
}

// Plan is a structured, ordered set of steps. Identity is ID; acceptance is a
// one-way transition.
type Plan struct {
	ID         types.PlanID
	Title      string
	Goal       string
	Focus      string
	NeedKey    types.NeedKey
	NeedLabel  string
	Steps      []PlanStep
	Milestones []Milestone
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// Accepted reports whether the plan has been accepted.
func (p *Plan) Accepted() bool {
	return p != nil && p.AcceptedAt != nil
}

// Accept marks the plan accepted. Re-accepting keeps the original timestamp.
func (p *Plan) Accept(now time.Time) {
	if p.AcceptedAt != nil {
		return
	}
	t := now
	p.AcceptedAt = &t
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	if p.AcceptedAt != nil {
		t := *p.AcceptedAt
		c.AcceptedAt = &t
	}
	c.Steps = make([]PlanStep, len(p.Steps))
	for i, s := range p.Steps {
		cs := s
		if s.Resources != nil {
			cs.Resources = make([]Resource, len(s.Resources))
			copy(cs.Resources, s.Resources)
		}
		c.Steps[i] = cs
	}
	if p.Milestones != nil {
		c.Milestones = make([]Milestone, len(p.Milestones))
		copy(c.Milestones, p.Milestones)
	}
	return &c
}

// DedupPlans removes any existing entry with the given plan's ID and prepends
// the plan, keeping most-recent-first ordering. Both storage tiers apply it on
// every mutation.
func DedupPlans(plans []*Plan, p *Plan) []*Plan {
	out := make([]*Plan, 0, len(plans)+1)
	out = append(out, p)
	for _, existing := range plans {
		if existing.ID == p.ID {
			continue
		}
		out = append(out, existing)
	}
	return out
}
