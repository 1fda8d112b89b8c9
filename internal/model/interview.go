package model

import (
	"strings"
	"time"
)

// Interview types. The voice workflow may send "behavioural" or "mix";
// NormalizeInterviewType folds those into the canonical values.
const (
	InterviewTechnical  = "technical"
	InterviewBehavioral = "behavioral"
	InterviewMixed      = "mixed"
)

// Interview is a generated question set for one role.
//
// Questions keep the order the generator produced them in; that order is the
// order the interviewer assistant asks them. Only Finalized interviews are
// shown to other users.
type Interview struct {
	ID        string    `json:"id"        db:"id"         bson:"_id"`
	UserID    string    `json:"userId"    db:"user_id"    bson:"userId"`
	Role      string    `json:"role"      db:"role"       bson:"role"`
	Level     string    `json:"level"     db:"level"      bson:"level"`
	Type      string    `json:"type"      db:"type"       bson:"type"`
	TechStack []string  `json:"techstack" db:"techstack"  bson:"techstack"`
	Questions []string  `json:"questions" db:"questions"  bson:"questions"`
	Finalized bool      `json:"finalized" db:"finalized"  bson:"finalized"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// NormalizeInterviewType maps free-form type input onto one of the
// canonical interview types. It returns "" for unrecognised input.
func NormalizeInterviewType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch {
	case strings.Contains(t, "mix"):
		return InterviewMixed
	case strings.HasPrefix(t, "behavio"):
		return InterviewBehavioral
	case strings.HasPrefix(t, "tech"):
		return InterviewTechnical
	}
	return ""
}
