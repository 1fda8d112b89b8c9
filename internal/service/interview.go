package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/llm"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

const (
	DefaultLatestLimit    = 20
	defaultQuestionAmount = 5
	maxQuestionAmount     = 20

	cardDateLayout        = "Jan 2, 2006"
	noScore               = "---"
	notTakenYetAssessment = "You haven't taken the interview yet. Take it now to improve your skills."
)

// InterviewService reads interviews and generates new ones with the LLM.
type InterviewService struct {
	interviews repository.InterviewRepository
	feedback   repository.FeedbackRepository
	generator  llm.Generator
	logger     *slog.Logger
}

func NewInterviewService(
	interviews repository.InterviewRepository,
	feedback repository.FeedbackRepository,
	generator llm.Generator,
	logger *slog.Logger,
) *InterviewService {
	return &InterviewService{
		interviews: interviews,
		feedback:   feedback,
		generator:  generator,
		logger:     logger,
	}
}

func (s *InterviewService) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	iv, err := s.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/interview: get %s: %w", id, err)
	}
	return iv, nil
}

// ListByUser returns the user's own interviews, newest first.
func (s *InterviewService) ListByUser(ctx context.Context, userID string) ([]model.Interview, error) {
	list, err := s.interviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/interview: list for %s: %w", userID, err)
	}
	return list, nil
}

// ListLatest returns finalized interviews created by other users. A
// non-positive limit means DefaultLatestLimit.
func (s *InterviewService) ListLatest(ctx context.Context, userID string, limit int) ([]model.Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	list, err := s.interviews.ListLatest(ctx, repository.LatestOptions{ExcludeUserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/interview: list latest: %w", err)
	}
	return list, nil
}

// GenerateInput is what the voice workflow collects from the user.
// TechStack is a comma separated list and Amount may arrive as a string.
type GenerateInput struct {
	UserID    string `json:"userid"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	Type      string `json:"type"`
	TechStack string `json:"techstack"`
	Amount    string `json:"amount"`
}

// Generate asks the LLM for questions and stores the finalized interview.
func (s *InterviewService) Generate(ctx context.Context, in GenerateInput) (*model.Interview, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, apperror.ValidationFailed("userid", "userid is required")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, apperror.ValidationFailed("role", "role is required")
	}
	typ := model.NormalizeInterviewType(in.Type)
	if typ == "" {
		return nil, apperror.ValidationFailed("type", "type must be technical, behavioral or mixed")
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	stack := splitStack(in.TechStack)

	questions, err := s.generator.GenerateQuestions(ctx, llm.QuestionRequest{
		Role:      role,
		Level:     strings.TrimSpace(in.Level),
		Type:      typ,
		TechStack: stack,
		Amount:    amount,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, apperror.Unavailable("Question generation is not available")
		}
		return nil, fmt.Errorf("service/interview: generating questions: %w", err)
	}

	iv := &model.Interview{
		UserID:    in.UserID,
		Role:      role,
		Level:     strings.TrimSpace(in.Level),
		Type:      typ,
		TechStack: stack,
		Questions: questions,
		Finalized: true,
	}
	if err := s.interviews.Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("service/interview: saving interview: %w", err)
	}

	s.logger.Info("interview generated",
		slog.String("interviewID", iv.ID),
		slog.String("userID", iv.UserID),
		slog.Int("questions", len(questions)),
	)
	return iv, nil
}

func parseAmount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultQuestionAmount, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxQuestionAmount {
		return 0, apperror.ValidationFailed("amount", fmt.Sprintf("amount must be between 1 and %d", maxQuestionAmount))
	}
	return n, nil
}

func splitStack(raw string) []string {
	var stack []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			stack = append(stack, t)
		}
	}
	if stack == nil {
		return []string{}
	}
	return stack
}

// Card is the dashboard summary of one interview.
type Card struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	TechStack       []string `json:"techstack"`
	Date            string   `json:"date"`
	Score           string   `json:"score"`
	FinalAssessment string   `json:"finalAssessment"`
	Link            string   `json:"link"`
	HasFeedback     bool     `json:"hasFeedback"`
}

// Cards builds the dashboard cards for interviews as seen by userID. The
// score, date and assessment come from the viewer's latest feedback, when any.
func (s *InterviewService) Cards(ctx context.Context, userID string, interviews []model.Interview) ([]Card, error) {
	cards := make([]Card, 0, len(interviews))
	for i := range interviews {
		iv := &interviews[i]

		var fb *model.Feedback
		if userID != "" {
			got, err := s.feedback.GetLatest(ctx, iv.ID, userID)
			switch {
			case err == nil:
				fb = got
			case errors.Is(err, apperror.ErrNotFound):
			default:
				return nil, fmt.Errorf("service/interview: feedback for %s: %w", iv.ID, err)
			}
		}
		cards = append(cards, s.card(iv, fb))
	}
	return cards, nil
}

func (s *InterviewService) card(iv *model.Interview, fb *model.Feedback) Card {
	c := Card{
		ID:              iv.ID,
		Title:           titleCase(iv.Role) + " Interview",
		Type:            displayType(iv.Type),
		TechStack:       iv.TechStack,
		Date:            iv.CreatedAt.Format(cardDateLayout),
		Score:           noScore,
		FinalAssessment: notTakenYetAssessment,
		Link:            "/interview/" + iv.ID,
	}
	if fb == nil {
		return c
	}

	c.HasFeedback = true
	c.Link = "/interview/" + iv.ID + "/feedback"
	c.Date = fb.CreatedAt.Format(cardDateLayout)
	if fb.TotalScore > 0 {
		c.Score = strconv.Itoa(fb.TotalScore)
	}
	if fb.FinalAssessment != "" {
		c.FinalAssessment = fb.FinalAssessment
	}
	return c
}

func displayType(t string) string {
	if strings.Contains(strings.ToLower(t), "mix") {
		return "Mixed"
	}
	return titleCase(t)
}

// titleCase builds a Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
