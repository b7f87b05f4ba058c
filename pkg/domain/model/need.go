package model

import (
	"regexp"
	"strings"

	"github.com/everlift-app/everlift/pkg/domain/types"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9_]+`)
	slugRepeats      = regexp.MustCompile(`_+`)
)

// Need is a confidence sub-topic within a focus area. For the custom need the
// user-supplied CustomLabel determines both display label and storage slug.
type Need struct {
	Key         types.NeedKey
	Label       string
	CustomLabel string
}

// DisplayLabel returns the label shown to the user.
func (n Need) DisplayLabel() string {
	if n.Key.IsCustom() && n.CustomLabel != "" {
		return n.CustomLabel
	}
	return n.Label
}

// Slug returns the stable storage key for the need. Custom needs slug their
// label; predefined needs use the key itself.
func (n Need) Slug() string {
	if n.Key.IsCustom() {
		return Slugify(n.CustomLabel)
	}
	return n.Key.String()
}

// Slugify normalizes free text into a stable lowercase storage key.
func Slugify(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = slugInvalidChars.ReplaceAllString(t, "_")
	t = slugRepeats.ReplaceAllString(t, "_")
	return strings.Trim(t, "_")
}

// Scope addresses one (user, focus, need) storage cell. All confidence records
// and transcripts are keyed by it.
type Scope struct {
	UserID types.UserID
	Focus  string
	Need   Need
}

// Key returns the composite storage key for the scope.
func (s Scope) Key() string {
	return strings.Join([]string{s.UserID.String(), Slugify(s.Focus), s.Need.Slug()}, "/")
}

// ConversationKey returns the (user, focus) key used by the ephemeral
// conversation-plan list, which is shared across needs.
func (s Scope) ConversationKey() string {
	return strings.Join([]string{s.UserID.String(), Slugify(s.Focus)}, "/")
}
