package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// MessageClass is the lightweight classification of one user message. This is
// pattern matching, not NLP: it only has to be good enough to gate prompts.
type MessageClass int

const (
	ClassFreeText MessageClass = iota
	ClassGreeting
	ClassPlanRequest
	ClassNumeric
)

var (
	greetingRe = regexp.MustCompile(`^\s*(hi|hello|hey|yo|good\s+(morning|afternoon|evening))[!., ]*$`)
	planReqRe  = regexp.MustCompile(`\b(plan|steps|roadmap|next steps|help me|strategy|schedule)\b`)
	// Accepts "7" and "7/10" like the coaching backend does.
	numericRe = regexp.MustCompile(`^\s*(\d{1,2}(?:\.\d)?)(?:\s*/\s*10)?\s*$`)
)

// Classifier classifies user messages. The greeting pattern is a policy knob:
// the engagement heuristic around it has shifted repeatedly, so it is swappable
// rather than contractual.
type Classifier struct {
	greeting *regexp.Regexp
}

func NewClassifier() *Classifier {
	return &Classifier{greeting: greetingRe}
}

// WithGreetingPattern overrides the greeting detector.
func (c *Classifier) WithGreetingPattern(re *regexp.Regexp) *Classifier {
	c.greeting = re
	return c
}

// Classify buckets the message. expectLevel widens numeric detection: outside
// a level-gated state, bare numbers are just free text.
func (c *Classifier) Classify(text string, expectLevel bool) MessageClass {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ClassFreeText
	}
	if c.greeting.MatchString(t) {
		return ClassGreeting
	}
	if expectLevel {
		if _, ok := ParseLevel(t); ok {
			return ClassNumeric
		}
	}
	if planReqRe.MatchString(t) {
		return ClassPlanRequest
	}
	return ClassFreeText
}

// ParseLevel parses a confidence reply. Valid levels are numbers in [1,10];
// anything else is rejected for a retry prompt, never clamped.
func ParseLevel(text string) (float64, bool) {
	m := numericRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 1 || v > 10 {
		return 0, false
	}
	return v, true
}
