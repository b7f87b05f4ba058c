package types

import "fmt"

// NeedKey identifies a confidence sub-topic within a focus area.
// NeedKeyCustom requires a user-supplied label resolved at the registry.
type NeedKey string

const (
	NeedKeyInterview    NeedKey = "interview_confidence"
	NeedKeyWork         NeedKey = "work_focus"
	NeedKeyRelationship NeedKey = "relationship_communication"
	NeedKeyAppearance   NeedKey = "appearance_confidence"
	NeedKeyGeneral      NeedKey = "general"
	NeedKeyCustom       NeedKey = "custom"
)

// AllNeedKeys returns all valid need keys
func AllNeedKeys() []NeedKey {
	return []NeedKey{
		NeedKeyInterview,
		NeedKeyWork,
		NeedKeyRelationship,
		NeedKeyAppearance,
		NeedKeyGeneral,
		NeedKeyCustom,
	}
}

// IsValid checks if the need key is valid
func (k NeedKey) IsValid() bool {
	switch k {
	case NeedKeyInterview,
		NeedKeyWork,
		NeedKeyRelationship,
		NeedKeyAppearance,
		NeedKeyGeneral,
		NeedKeyCustom:
		return true
	default:
		return false
	}
}

// IsCustom reports whether the key refers to the user-defined need.
func (k NeedKey) IsCustom() bool {
	return k == NeedKeyCustom
}

// String returns the string representation of the need key
func (k NeedKey) String() string {
	return string(k)
}

// ParseNeedKey parses a string into a NeedKey
func ParseNeedKey(s string) (NeedKey, error) {
	key := NeedKey(s)
	if !key.IsValid() {
		return "", fmt.Errorf("invalid need key: %s", s)
	}
	return key, nil
}
