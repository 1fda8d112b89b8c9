package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

type feedbackStore struct {
	conn *sql.DB
}

var _ repository.FeedbackRepository = (*feedbackStore)(nil)

const feedbackColumns = `id, interview_id, user_id, total_score, category_scores,
	strengths, areas_for_improvement, final_assessment, created_at`

// Create inserts a feedback record. Feedback rows are never updated.
func (s *feedbackStore) Create(ctx context.Context, fb *model.Feedback) error {
	fb.ID = xid.New().String()
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	categories, err := encodeJSON(fb.CategoryScores)
	if err != nil {
		return fmt.Errorf("sqlite: encoding category scores: %w", err)
	}
	strengths, err := encodeJSON(fb.Strengths)
	if err != nil {
		return fmt.Errorf("sqlite: encoding strengths: %w", err)
	}
	areas, err := encodeJSON(fb.AreasForImprovement)
	if err != nil {
		return fmt.Errorf("sqlite: encoding areas for improvement: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO feedback (`+feedbackColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fb.ID,
		fb.InterviewID,
		fb.UserID,
		fb.TotalScore,
		categories,
		strengths,
		areas,
		fb.FinalAssessment,
		fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting feedback for interview %s: %w", fb.InterviewID, err)
	}
	return nil
}

func (s *feedbackStore) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = ?`, id)

	fb, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("feedback", id)
		}
		return nil, fmt.Errorf("sqlite: getting feedback %s: %w", id, err)
	}
	return fb, nil
}

// GetLatest returns the newest feedback for (interviewID, userID).
func (s *feedbackStore) GetLatest(ctx context.Context, interviewID, userID string) (*model.Feedback, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback
		 WHERE interview_id = ? AND user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		interviewID, userID,
	)

	fb, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("feedback for interview", interviewID)
		}
		return nil, fmt.Errorf("sqlite: getting feedback for interview %s: %w", interviewID, err)
	}
	return fb, nil
}

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var (
		fb         model.Feedback
		categories string
		strengths  string
		areas      string
	)
	if err := row.Scan(
		&fb.ID,
		&fb.InterviewID,
		&fb.UserID,
		&fb.TotalScore,
		&categories,
		&strengths,
		&areas,
		&fb.FinalAssessment,
		&fb.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeJSON(categories, &fb.CategoryScores); err != nil {
		return nil, fmt.Errorf("decoding category scores: %w", err)
	}
	if err := decodeJSON(strengths, &fb.Strengths); err != nil {
		return nil, fmt.Errorf("decoding strengths: %w", err)
	}
	if err := decodeJSON(areas, &fb.AreasForImprovement); err != nil {
		return nil, fmt.Errorf("decoding areas for improvement: %w", err)
	}
	return &fb, nil
}
