package config

import "github.com/everlift-app/everlift/pkg/domain/types"

// NeedDef is one catalogue entry offered for a focus area.
type NeedDef struct {
	Key      types.NeedKey
	Label    string
	Focus    string
	Keywords []string
}

// ResourceLink is a default learning link attached by the extractor.
type ResourceLink struct {
	Title string
	URL   string
	Type  string
}

// ResourceRule maps step-label keywords to default resources.
type ResourceRule struct {
	ID        string
	Keywords  []string
	Resources []ResourceLink
}

// NeedsConfig is the domain-side view of the needs catalogue and the default
// resource taxonomy. The CLI layer builds it from TOML or falls back to the
// built-in catalogue.
type NeedsConfig struct {
	Needs []NeedDef
	Rules []ResourceRule
	// Fallback applies when no rule matches a step label.
	Fallback []ResourceLink
}
