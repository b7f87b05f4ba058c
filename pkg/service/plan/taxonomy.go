package plan

import (
	"strings"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/model/config"
)

// MaxResourcesPerStep caps the default links attached to one step.
const MaxResourcesPerStep = 3

// DefaultResources picks up to 3 links for a step by keyword matching against
// the taxonomy. Pure function of the step label, no network calls.
func (ex *Extractor) DefaultResources(label string) []model.Resource {
	t := strings.ToLower(label)
	var out []model.Resource
	for _, rule := range ex.rules {
		if !matchesAny(t, rule.Keywords) {
			continue
		}
		for _, link := range rule.Resources {
			if len(out) >= MaxResourcesPerStep {
				return out
			}
			out = append(out, model.Resource{Title: link.Title, URL: link.URL, Type: link.Type})
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, link := range ex.fallback {
		if len(out) >= MaxResourcesPerStep {
			break
		}
		out = append(out, model.Resource{Title: link.Title, URL: link.URL, Type: link.Type})
	}
	return out
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func defaultRules() []config.ResourceRule {
	return []config.ResourceRule{
		{
			ID:       "coding",
			Keywords: []string{"coding", "leetcode", "algorithm", "data structure", "practice problem"},
			Resources: []config.ResourceLink{
				{Title: "LeetCode Explore", URL: "https://leetcode.com/explore/", Type: "practice"},
				{Title: "NeetCode Roadmap", URL: "https://neetcode.io/roadmap", Type: "course"},
			},
		},
		{
			ID:       "system-design",
			Keywords: []string{"system design", "architecture", "scalab", "design pattern"},
			Resources: []config.ResourceLink{
				{Title: "System Design Primer", URL: "https://github.com/donnemartin/system-design-primer", Type: "reference"},
				{Title: "Designing Data-Intensive Applications", URL: "https://dataintensive.net/", Type: "book"},
			},
		},
		{
			ID:       "ml-serving",
			Keywords: []string{"ml ops", "mlops", "machine learning", "model serving", "pipeline", "data engineer"},
			Resources: []config.ResourceLink{
				{Title: "Made With ML", URL: "https://madewithml.com/", Type: "course"},
				{Title: "Chip Huyen: Designing ML Systems", URL: "https://huyenchip.com/books/", Type: "book"},
			},
		},
		{
			ID:       "behavioral",
			Keywords: []string{"behavioral", "star", "story", "tell me about", "mock interview"},
			Resources: []config.ResourceLink{
				{Title: "STAR Method Guide", URL: "https://www.themuse.com/advice/star-interview-method", Type: "article"},
			},
		},
	}
}

func defaultFallback() []config.ResourceLink {
	return []config.ResourceLink{
		{Title: "Atomic Habits: Getting 1% Better", URL: "https://jamesclear.com/continuous-improvement", Type: "article"},
	}
}
