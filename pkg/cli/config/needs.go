package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	domainConfig "github.com/everlift-app/everlift/pkg/domain/model/config"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

// NeedsConfig represents the needs catalogue and resource taxonomy file
type NeedsConfig struct {
	path string

	Needs    []NeedEntry    `toml:"need"`
	Rules    []ResourceRule `toml:"resource_rule"`
	Fallback []ResourceLink `toml:"fallback_resource"`
}

// NeedEntry is one catalogue entry in the TOML file
type NeedEntry struct {
	Key      string   `toml:"key"`
	Label    string   `toml:"label"`
	Focus    string   `toml:"focus"`
	Keywords []string `toml:"keywords"`
}

// Validate checks if the NeedEntry is valid
func (n *NeedEntry) Validate() error {
	key, err := types.ParseNeedKey(n.Key)
	if err != nil {
		return goerr.Wrap(err, "invalid need key")
	}
	if !key.IsCustom() && n.Label == "" {
		return goerr.New("need label is required", goerr.V("key", n.Key))
	}
	return nil
}

// ResourceRule maps step-label keywords to default resources
type ResourceRule struct {
	ID        string         `toml:"id"`
	Keywords  []string       `toml:"keywords"`
	Resources []ResourceLink `toml:"resources"`
}

// Validate checks if the ResourceRule is valid
func (r *ResourceRule) Validate() error {
	if r.ID == "" {
		return goerr.New("resource rule ID is required")
	}
	if len(r.Keywords) == 0 {
		return goerr.New("resource rule keywords are required", goerr.V("id", r.ID))
	}
	for _, link := range r.Resources {
		if err := link.Validate(); err != nil {
			return goerr.Wrap(err, "invalid resource link", goerr.V("rule", r.ID))
		}
	}
	return nil
}

// ResourceLink is one default learning link
type ResourceLink struct {
	Title string `toml:"title"`
	URL   string `toml:"url"`
	Type  string `toml:"type"`
}

// Validate checks if the ResourceLink is valid
func (l *ResourceLink) Validate() error {
	if l.Title == "" {
		return goerr.New("resource title is required")
	}
	if l.URL == "" {
		return goerr.New("resource URL is required", goerr.V("title", l.Title))
	}
	return nil
}

// Validate checks the whole catalogue for duplicates and per-entry validity
func (c *NeedsConfig) Validate() error {
	seen := make(map[string]bool)
	for _, n := range c.Needs {
		if err := n.Validate(); err != nil {
			return goerr.Wrap(err, "invalid need entry")
		}
		id := n.Focus + "/" + n.Key
		if seen[id] {
			return goerr.New("duplicate need entry", goerr.V("key", n.Key), goerr.V("focus", n.Focus))
		}
		seen[id] = true
	}

	ruleIDs := make(map[string]bool)
	for _, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return goerr.Wrap(err, "invalid resource rule")
		}
		if ruleIDs[r.ID] {
			return goerr.New("duplicate resource rule ID", goerr.V("id", r.ID))
		}
		ruleIDs[r.ID] = true
	}

	for _, l := range c.Fallback {
		if err := l.Validate(); err != nil {
			return goerr.Wrap(err, "invalid fallback resource")
		}
	}
	return nil
}

// Flags returns CLI flags for the needs catalogue
func (c *NeedsConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "needs-config",
			Usage:       "Path to the needs catalogue TOML file (built-in catalogue when omitted)",
			Sources:     cli.EnvVars("EVERLIFT_NEEDS_CONFIG"),
			Destination: &c.path,
		},
	}
}

// Configure loads and validates the catalogue, converting it to the domain
// representation. A missing path falls back to the built-in catalogue.
func (c *NeedsConfig) Configure() (*domainConfig.NeedsConfig, error) {
	if c.path == "" {
		logging.Default().Info("Using built-in needs catalogue")
		return nil, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read needs config", goerr.V("path", c.path))
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse needs config", goerr.V("path", c.path))
	}
	if err := c.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid needs config", goerr.V("path", c.path))
	}

	out := &domainConfig.NeedsConfig{}
	for _, n := range c.Needs {
		key, _ := types.ParseNeedKey(n.Key)
		out.Needs = append(out.Needs, domainConfig.NeedDef{
			Key:      key,
			Label:    n.Label,
			Focus:    n.Focus,
			Keywords: n.Keywords,
		})
	}
	for _, r := range c.Rules {
		rule := domainConfig.ResourceRule{ID: r.ID, Keywords: r.Keywords}
		for _, l := range r.Resources {
			rule.Resources = append(rule.Resources, domainConfig.ResourceLink{Title: l.Title, URL: l.URL, Type: l.Type})
		}
		out.Rules = append(out.Rules, rule)
	}
	for _, l := range c.Fallback {
		out.Fallback = append(out.Fallback, domainConfig.ResourceLink{Title: l.Title, URL: l.URL, Type: l.Type})
	}

	logging.Default().Info("Loaded needs catalogue",
		"path", c.path,
		"needs", len(out.Needs),
		"rules", len(out.Rules),
	)
	return out, nil
}
