package types

// FailureKind classifies coach backend failures. Each kind maps to distinct
// user-facing copy, and consecutive failures of the same kind are reported once.
type FailureKind string

const (
	FailureKindNone    FailureKind = ""
	FailureKindTimeout FailureKind = "timeout"
	FailureKindServer  FailureKind = "server"
	FailureKindNetwork FailureKind = "network"
)

// IsValid checks if the failure kind is valid
func (k FailureKind) IsValid() bool {
	switch k {
	case FailureKindTimeout, FailureKindServer, FailureKindNetwork:
		return true
	default:
		return false
	}
}

// String returns the string representation of the failure kind
func (k FailureKind) String() string {
	return string(k)
}
