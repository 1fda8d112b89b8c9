package model

import "testing"

func TestNormalizeInterviewType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"technical", InterviewTechnical},
		{"Technical ", InterviewTechnical},
		{"behavioral", InterviewBehavioral},
		{"Behavioural", InterviewBehavioral},
		{"mixed", InterviewMixed},
		{"Mix", InterviewMixed},
		{"technical and behavioural mix", InterviewMixed},
		{"", ""},
		{"panel", ""},
	}
	for _, tt := range tests {
		if got := NormalizeInterviewType(tt.in); got != tt.want {
			t.Errorf("NormalizeInterviewType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
