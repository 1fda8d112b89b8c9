package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/archive"
	"github.com/sakif/interview-me/internal/llm"
	"github.com/sakif/interview-me/internal/mail"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

const tracerName = "github.com/sakif/interview-me/internal/service"

// FeedbackService turns finished interview transcripts into stored
// assessments.
//
// CREATE FLOW:
//
//  1. Validate the transcript and load the interview
//  2. Ask the LLM for the structured assessment
//  3. Persist the feedback (the only step that must succeed)
//  4. Archive the transcript and email the user, best effort
type FeedbackService struct {
	interviews repository.InterviewRepository
	feedback   repository.FeedbackRepository
	users      repository.UserRepository
	generator  llm.Generator
	archive    archive.Store
	notifier   mail.Notifier
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

func NewFeedbackService(
	interviews repository.InterviewRepository,
	feedback repository.FeedbackRepository,
	users repository.UserRepository,
	generator llm.Generator,
	store archive.Store,
	notifier mail.Notifier,
	logger *slog.Logger,
) *FeedbackService {
	if store == nil {
		store = archive.Discard{}
	}
	if notifier == nil {
		notifier = mail.Nop{}
	}
	return &FeedbackService{
		interviews: interviews,
		feedback:   feedback,
		users:      users,
		generator:  generator,
		archive:    store,
		notifier:   notifier,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
		now:        time.Now,
	}
}

// Create assesses transcript for interviewID on behalf of userID.
func (s *FeedbackService) Create(ctx context.Context, interviewID, userID string, transcript []model.Message) (fb *model.Feedback, err error) {
	ctx, span := s.tracer.Start(ctx, "FeedbackService.Create", trace.WithAttributes(
		attribute.String("interview.id", interviewID),
		attribute.Int("transcript.messages", len(transcript)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	transcript = cleanTranscript(transcript)
	if len(transcript) == 0 {
		return nil, apperror.ValidationFailed("transcript", "transcript is empty")
	}

	iv, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("service/feedback: loading interview %s: %w", interviewID, err)
	}

	draft, err := s.generator.GenerateFeedback(ctx, llm.FeedbackRequest{
		Role:       iv.Role,
		Level:      iv.Level,
		Type:       iv.Type,
		Transcript: transcript,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, apperror.Unavailable("Feedback generation is not available")
		}
		return nil, fmt.Errorf("service/feedback: generating feedback: %w", err)
	}

	fb = &model.Feedback{
		InterviewID:         iv.ID,
		UserID:              userID,
		TotalScore:          draft.TotalScore,
		CategoryScores:      draft.CategoryScores,
		Strengths:           draft.Strengths,
		AreasForImprovement: draft.AreasForImprovement,
		FinalAssessment:     draft.FinalAssessment,
		CreatedAt:           s.now(),
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("service/feedback: saving feedback: %w", err)
	}
	span.SetAttributes(attribute.String("feedback.id", fb.ID), attribute.Int("feedback.total_score", fb.TotalScore))

	s.logger.Info("feedback created",
		slog.String("feedbackID", fb.ID),
		slog.String("interviewID", iv.ID),
		slog.String("userID", userID),
		slog.Int("totalScore", fb.TotalScore),
	)

	s.archiveTranscript(ctx, fb, transcript)
	s.notify(ctx, iv, fb)
	return fb, nil
}

// CreateFeedback is Create reduced to the new feedback ID, the shape the
// call controller consumes.
func (s *FeedbackService) CreateFeedback(ctx context.Context, interviewID, userID string, transcript []model.Message) (string, error) {
	fb, err := s.Create(ctx, interviewID, userID, transcript)
	if err != nil {
		return "", err
	}
	return fb.ID, nil
}

// GetForInterview returns the user's most recent feedback for the interview.
func (s *FeedbackService) GetForInterview(ctx context.Context, interviewID, userID string) (*model.Feedback, error) {
	fb, err := s.feedback.GetLatest(ctx, interviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("service/feedback: latest for %s: %w", interviewID, err)
	}
	return fb, nil
}

func (s *FeedbackService) archiveTranscript(ctx context.Context, fb *model.Feedback, transcript []model.Message) {
	key, err := archive.PutTranscript(ctx, s.archive, archive.Transcript{
		InterviewID: fb.InterviewID,
		UserID:      fb.UserID,
		FeedbackID:  fb.ID,
		Messages:    transcript,
		ArchivedAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to archive transcript",
			slog.String("feedbackID", fb.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("transcript archived", slog.String("key", key))
}

func (s *FeedbackService) notify(ctx context.Context, iv *model.Interview, fb *model.Feedback) {
	user, err := s.users.GetByID(ctx, fb.UserID)
	if err != nil {
		s.logger.Warn("skipping feedback email", slog.String("userID", fb.UserID), slog.String("error", err.Error()))
		return
	}
	if err := s.notifier.FeedbackReady(ctx, user, iv, fb); err != nil {
		s.logger.Warn("failed to send feedback email",
			slog.String("userID", fb.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// cleanTranscript drops blank messages and trims content.
func cleanTranscript(in []model.Message) []model.Message {
	out := make([]model.Message, 0, len(in))
	for _, m := range in {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		out = append(out, model.Message{Role: m.Role, Content: content})
	}
	return out
}
