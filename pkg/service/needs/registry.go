package needs

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/model/config"
	"github.com/everlift-app/everlift/pkg/domain/types"
)

// ErrBlankCustomLabel is returned when the custom need is selected without a
// label. The controller rejects the send locally and asks for clarification.
var ErrBlankCustomLabel = goerr.New("custom need label is required")

// Registry is the static catalogue of confidence needs per focus area, plus
// the user-defined custom need.
type Registry struct {
	needs []config.NeedDef
}

// New builds a registry from the given catalogue, or the built-in one when the
// catalogue is empty.
func New(defs []config.NeedDef) *Registry {
	if len(defs) == 0 {
		defs = DefaultCatalogue()
	}
	return &Registry{needs: defs}
}

// DefaultCatalogue returns the built-in need catalogue.
func DefaultCatalogue() []config.NeedDef {
	return []config.NeedDef{
		{
			Key:   types.NeedKeyInterview,
			Label: "Interview confidence",
			Focus: "career",
			Keywords: []string{
				"interview", "behavioral", "system design", "leetcode",
				"ml ops", "mle", "data engineer",
			},
		},
		{
			Key:   types.NeedKeyWork,
			Label: "Work focus",
			Focus: "career",
			Keywords: []string{
				"work", "job", "boss", "coworker", "deadline",
				"productivity", "focus",
			},
		},
		{
			Key:   types.NeedKeyRelationship,
			Label: "Relationship communication",
			Focus: "relationships",
			Keywords: []string{
				"relationship", "partner", "husband", "wife", "dating",
				"communication",
			},
		},
		{
			Key:   types.NeedKeyAppearance,
			Label: "Appearance confidence",
			Focus: "self-image",
			Keywords: []string{
				"appearance", "body image", "looks", "weight", "skin", "hair",
			},
		},
		{
			Key:   types.NeedKeyGeneral,
			Label: "General confidence",
			Focus: "general",
		},
	}
}

// ForFocus lists the catalogue needs offered for a focus area. The custom need
// is always available and is not part of the catalogue.
func (r *Registry) ForFocus(focus string) []config.NeedDef {
	slug := model.Slugify(focus)
	var out []config.NeedDef
	for _, def := range r.needs {
		if model.Slugify(def.Focus) == slug {
			out = append(out, def)
		}
	}
	return out
}

// Resolve turns a need key and optional custom label into a Need with a stable
// storage slug. A blank custom label is rejected, never silently defaulted.
func (r *Registry) Resolve(key types.NeedKey, customLabel string) (model.Need, error) {
	if !key.IsValid() {
		return model.Need{}, goerr.New("unknown need key", goerr.V("key", key.String()))
	}
	if key.IsCustom() {
		label := strings.TrimSpace(customLabel)
		if label == "" {
			return model.Need{}, ErrBlankCustomLabel
		}
		if model.Slugify(label) == "" {
			return model.Need{}, goerr.Wrap(ErrBlankCustomLabel, "custom need label has no usable characters",
				goerr.V("label", customLabel))
		}
		return model.Need{Key: key, Label: "Custom", CustomLabel: label}, nil
	}
	for _, def := range r.needs {
		if def.Key == key {
			return model.Need{Key: key, Label: def.Label}, nil
		}
	}
	return model.Need{Key: key, Label: key.String()}, nil
}

// Infer guesses a need key from free text by keyword scan, with a profile
// focus fallback. Used only when the UI does not pass a need explicitly.
func (r *Registry) Infer(text string, profileFocus string) types.NeedKey {
	t := strings.ToLower(text)
	for _, def := range r.needs {
		for _, kw := range def.Keywords {
			if strings.Contains(t, kw) {
				return def.Key
			}
		}
	}
	if slug := model.Slugify(profileFocus); slug != "" {
		for _, def := range r.needs {
			if model.Slugify(def.Focus) == slug {
				return def.Key
			}
		}
	}
	return types.NeedKeyGeneral
}
