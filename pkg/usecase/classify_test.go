package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/usecase"
)

func TestClassify(t *testing.T) {
	c := usecase.NewClassifier()

	tests := []struct {
		name        string
		text        string
		expectLevel bool
		expected    usecase.MessageClass
	}{
		{
			name:     "greeting",
			text:     "Hey!",
			expected: usecase.ClassGreeting,
		},
		{
			name:     "greeting with punctuation",
			text:     "good morning ",
			expected: usecase.ClassGreeting,
		},
		{
			name:     "plan request",
			text:     "can you give me a plan for my interview next week",
			expected: usecase.ClassPlanRequest,
		},
		{
			name:     "roadmap request",
			text:     "I need a roadmap",
			expected: usecase.ClassPlanRequest,
		},
		{
			name:        "bare number while a level is expected",
			text:        "7",
			expectLevel: true,
			expected:    usecase.ClassNumeric,
		},
		{
			name:        "slash-ten form while a level is expected",
			text:        "7/10",
			expectLevel: true,
			expected:    usecase.ClassNumeric,
		},
		{
			name:     "bare number outside a level gate is free text",
			text:     "7",
			expected: usecase.ClassFreeText,
		},
		{
			name:     "ordinary message",
			text:     "I had a rough day at work",
			expected: usecase.ClassFreeText,
		},
		{
			name:     "empty message",
			text:     "   ",
			expected: usecase.ClassFreeText,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, c.Classify(tc.text, tc.expectLevel)).Equal(tc.expected)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		level    float64
		accepted bool
	}{
		{input: "7", level: 7, accepted: true},
		{input: "7/10", level: 7, accepted: true},
		{input: " 3.5 ", level: 3.5, accepted: true},
		{input: "10", level: 10, accepted: true},
		{input: "1", level: 1, accepted: true},
		{input: "0", accepted: false},
		{input: "11", accepted: false},
		{input: "0.5", accepted: false},
		{input: "seven", accepted: false},
		{input: "7 out of 10", accepted: false},
		{input: "", accepted: false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			level, ok := usecase.ParseLevel(tc.input)
			gt.Value(t, ok).Equal(tc.accepted)
			if tc.accepted {
				gt.Value(t, level).Equal(tc.level)
			}
		})
	}
}
