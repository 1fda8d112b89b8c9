// Package llm defines the text-generation backend used to write interview
// questions and to assess finished interviews, together with the prompts
// and the parsing of model output. Provider clients live in subpackages.
package llm

import (
	"context"
	"errors"

	"github.com/sakif/interview-me/internal/model"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("llm: provider not configured")

// Generator abstracts LLM providers.
type Generator interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackDraft, error)
}

// QuestionRequest describes the interview to write questions for.
type QuestionRequest struct {
	Role      string
	Level     string
	Type      string
	TechStack []string
	Amount    int
}

// FeedbackRequest carries a finished interview and its transcript.
type FeedbackRequest struct {
	Role       string
	Level      string
	Type       string
	Transcript []model.Message
}

// FeedbackDraft is the assessment as returned by the model, after clamping.
type FeedbackDraft struct {
	TotalScore          int                   `json:"totalScore"`
	CategoryScores      []model.CategoryScore `json:"categoryScores"`
	Strengths           []string              `json:"strengths"`
	AreasForImprovement []string              `json:"areasForImprovement"`
	FinalAssessment     string                `json:"finalAssessment"`
}

// Unavailable is the Generator used when no provider is configured.
type Unavailable struct{}

func (Unavailable) GenerateQuestions(context.Context, QuestionRequest) ([]string, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) GenerateFeedback(context.Context, FeedbackRequest) (*FeedbackDraft, error) {
	return nil, ErrNotConfigured
}
