package needs_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/service/needs"
)

func TestResolve(t *testing.T) {
	r := needs.New(nil)

	t.Run("catalogue need resolves to its label", func(t *testing.T) {
		need, err := r.Resolve(types.NeedKeyInterview, "")
		gt.NoError(t, err).Required()
		gt.Value(t, need.Label).Equal("Interview confidence")
		gt.Value(t, need.Slug()).Equal("interview_confidence")
	})

	t.Run("custom need takes its slug from the label", func(t *testing.T) {
		need, err := r.Resolve(types.NeedKeyCustom, "Public Speaking!")
		gt.NoError(t, err).Required()
		gt.Value(t, need.DisplayLabel()).Equal("Public Speaking!")
		gt.Value(t, need.Slug()).Equal("public_speaking")
	})

	t.Run("blank custom label is rejected", func(t *testing.T) {
		_, err := r.Resolve(types.NeedKeyCustom, "   ")
		gt.Bool(t, errors.Is(err, needs.ErrBlankCustomLabel)).True()
	})

	t.Run("custom label with no usable characters is rejected", func(t *testing.T) {
		_, err := r.Resolve(types.NeedKeyCustom, "!!!")
		gt.Bool(t, errors.Is(err, needs.ErrBlankCustomLabel)).True()
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		_, err := r.Resolve(types.NeedKey("made_up"), "")
		gt.Error(t, err)
	})
}

func TestForFocus(t *testing.T) {
	r := needs.New(nil)

	defs := r.ForFocus("career")
	gt.Array(t, defs).Length(2)
	gt.Value(t, defs[0].Key).Equal(types.NeedKeyInterview)
	gt.Value(t, defs[1].Key).Equal(types.NeedKeyWork)

	gt.Array(t, r.ForFocus("unknown-focus")).Length(0)
}

func TestInfer(t *testing.T) {
	r := needs.New(nil)

	tests := []struct {
		name     string
		text     string
		focus    string
		expected types.NeedKey
	}{
		{
			name:     "interview keywords",
			text:     "I have a system design interview on Friday",
			expected: types.NeedKeyInterview,
		},
		{
			name:     "relationship keywords",
			text:     "my partner and I keep arguing",
			expected: types.NeedKeyRelationship,
		},
		{
			name:     "profile focus fallback",
			text:     "I feel off lately",
			focus:    "self-image",
			expected: types.NeedKeyAppearance,
		},
		{
			name:     "general fallback",
			text:     "just checking in",
			expected: types.NeedKeyGeneral,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, r.Infer(tc.text, tc.focus)).Equal(tc.expected)
		})
	}
}
