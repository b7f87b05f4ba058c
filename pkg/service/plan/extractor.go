package plan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/model/config"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// MaxSteps caps normalized plans. Anything beyond is dropped.
const MaxSteps = 12

var (
	numberedItem = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	bulletItem   = regexp.MustCompile(`^[-•]\s+(.+)$`)
)

// Extractor turns backend output into canonical plans. All methods are pure
// and deterministic apart from ID generation at creation time.
type Extractor struct {
	rules    []config.ResourceRule
	fallback []config.ResourceLink
}

// NewExtractor builds an extractor with the given taxonomy, falling back to
// the built-in taxonomy when cfg is nil or empty.
func NewExtractor(cfg *config.NeedsConfig) *Extractor {
	ex := &Extractor{}
	if cfg != nil {
		ex.rules = cfg.Rules
		ex.fallback = cfg.Fallback
	}
	if len(ex.rules) == 0 {
		ex.rules = defaultRules()
	}
	if len(ex.fallback) == 0 {
		ex.fallback = defaultFallback()
	}
	return ex
}

// FromPayload normalizes a structured plan payload declared by the backend.
// Returns nil when the payload has no usable steps.
func (ex *Extractor) FromPayload(raw map[string]any, scope model.Scope, now time.Time) *model.Plan {
	if raw == nil {
		return nil
	}
	labels := stepLabels(raw)
	if len(labels) == 0 {
		return nil
	}

	p := ex.build(labels, scope, now)
	if title := stringField(raw, "title"); title != "" {
		p.Title = title
	}
	if goal := stringField(raw, "goal"); goal != "" {
		p.Goal = goal
	}
	p.Milestones = milestones(raw)
	return p
}

// FromText attempts deterministic extraction from free-form assistant text.
// Numbered list items win; bullets need at least 2 items to avoid false
// positives on prose. Returns nil when no clean list is found.
func (ex *Extractor) FromText(text string, scope model.Scope, now time.Time) *model.Plan {
	labels := ExtractListItems(text)
	if labels == nil {
		return nil
	}
	return ex.build(labels, scope, now)
}

// ExtractListItems pulls ordered step labels out of free text, or nil when the
// text is not a clean list.
func ExtractListItems(text string) []string {
	var numbered, bulleted []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := numberedItem.FindStringSubmatch(line); m != nil {
			numbered = append(numbered, strings.TrimSpace(m[1]))
			continue
		}
		if m := bulletItem.FindStringSubmatch(line); m != nil {
			bulleted = append(bulleted, strings.TrimSpace(m[1]))
		}
	}
	if len(numbered) > 0 {
		return numbered
	}
	if len(bulleted) >= 2 {
		return bulleted
	}
	return nil
}

func (ex *Extractor) build(labels []string, scope model.Scope, now time.Time) *model.Plan {
	steps := make([]model.PlanStep, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if len(steps) >= MaxSteps {
			break
		}
		steps = append(steps, model.PlanStep{
			ID:        fmt.Sprintf("step-%d", len(steps)+1),
			Label:     label,
			Resources: ex.DefaultResources(label),
		})
	}
	if len(steps) == 0 {
		return nil
	}

	label := scope.Need.DisplayLabel()
	return &model.Plan{
		ID:        types.NewPlanID(),
		Title:     fmt.Sprintf("%s Plan", strings.TrimSpace(label)),
		Goal:      fmt.Sprintf("Make steady progress on %s", strings.ToLower(label)),
		Focus:     scope.Focus,
		NeedKey:   scope.Need.Key,
		NeedLabel: label,
		Steps:     steps,
		CreatedAt: now,
	}
}

// Backfill attaches default resources to any step missing them. Returns true
// when the plan was modified, so hydration can write back exactly once.
func (ex *Extractor) Backfill(p *model.Plan) bool {
	if p == nil {
		return false
	}
	changed := false
	for i := range p.Steps {
		if len(p.Steps[i].Resources) == 0 {
			p.Steps[i].Resources = ex.DefaultResources(p.Steps[i].Label)
			changed = true
		}
	}
	return changed
}

// stepLabels accepts the several field spellings the backend uses for the
// task list (tasks, steps, items) with entries as strings or objects.
func stepLabels(raw map[string]any) []string {
	var entries []any
	for _, field := range []string{"tasks", "steps", "items"} {
		if v, ok := raw[field].([]any); ok && len(v) > 0 {
			entries = v
			break
		}
	}

	var labels []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			labels = append(labels, v)
		case map[string]any:
			for _, field := range []string{"text", "label", "title"} {
				if s, ok := v[field].(string); ok && strings.TrimSpace(s) != "" {
					labels = append(labels, s)
					break
				}
			}
		}
	}
	return labels
}

// milestones reads the optional milestone scaffold. Entries are objects with a
// name and status, or bare strings defaulting to "todo".
func milestones(raw map[string]any) []model.Milestone {
	entries, ok := raw["milestones"].([]any)
	if !ok {
		return nil
	}
	var out []model.Milestone
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, model.Milestone{Name: v, Status: "todo"})
			}
		case map[string]any:
			m := model.Milestone{
				Name:   stringField(v, "name"),
				Status: stringField(v, "status"),
			}
			if m.Name == "" {
				continue
			}
			if m.Status == "" {
				m.Status = "todo"
			}
			out = append(out, m)
		}
	}
	return out
}

func stringField(raw map[string]any, field string) string {
	if s, ok := raw[field].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
