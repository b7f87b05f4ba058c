package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

const (
	mermaidMaxNodes    = 6
	mermaidMaxLabelLen = 80
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Mermaid derives a flowchart description 1:1 from the step sequence, for use
// when the backend does not supply one. Labels are sanitized to keep the
// diagram syntax valid.
func Mermaid(p *model.Plan) string {
	if p == nil || len(p.Steps) == 0 {
		return ""
	}
	lines := []string{
		"flowchart TD",
		fmt.Sprintf("A[%q]", sanitizeLabel(p.Title)),
	}
	for i, step := range p.Steps {
		if i >= mermaidMaxNodes {
			break
		}
		nodeID := fmt.Sprintf("T%d", i+1)
		lines = append(lines,
			fmt.Sprintf("%s[%q]", nodeID, sanitizeLabel(step.Label)),
			fmt.Sprintf("A --> %s", nodeID),
		)
	}
	return strings.Join(lines, "\n")
}

func sanitizeLabel(label string) string {
	s := strings.ReplaceAll(label, `"`, "'")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	// Truncate by runes so a multibyte character is never split mid-sequence.
	if r := []rune(s); len(r) > mermaidMaxLabelLen {
		s = strings.TrimSpace(string(r[:mermaidMaxLabelLen-1])) + "…"
	}
	return s
}
