package model

import "time"

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one finalized utterance in a call transcript.
type Message struct {
	Role    string `json:"role"    bson:"role"`
	Content string `json:"content" bson:"content"`
}

// CategoryScore is the score and commentary for one assessment category.
type CategoryScore struct {
	Name    string `json:"name"    bson:"name"`
	Score   int    `json:"score"   bson:"score"`
	Comment string `json:"comment" bson:"comment"`
}

// Feedback is the AI assessment of one completed interview session.
// It is written once and only read afterwards.
type Feedback struct {
	ID                  string          `json:"id"                  db:"id"                    bson:"_id"`
	InterviewID         string          `json:"interviewId"         db:"interview_id"          bson:"interviewId"`
	UserID              string          `json:"userId"              db:"user_id"               bson:"userId"`
	TotalScore          int             `json:"totalScore"          db:"total_score"           bson:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"      db:"category_scores"       bson:"categoryScores"`
	Strengths           []string        `json:"strengths"           db:"strengths"             bson:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement" db:"areas_for_improvement" bson:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"     db:"final_assessment"      bson:"finalAssessment"`
	CreatedAt           time.Time       `json:"createdAt"           db:"created_at"            bson:"createdAt"`
}
