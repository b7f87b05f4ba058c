package types

import "fmt"

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role. The original backend emitted "coach"
// for assistant rows; it is accepted as an alias on ingest.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant", "coach":
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("invalid role: %s", s)
	}
}
