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

type interviewStore struct {
	conn *sql.DB
}

var _ repository.InterviewRepository = (*interviewStore)(nil)

const interviewColumns = `id, user_id, role, level, type, techstack, questions, finalized, created_at`

// Create inserts a new interview and fills in its ID (and CreatedAt when unset).
func (s *interviewStore) Create(ctx context.Context, interview *model.Interview) error {
	interview.ID = xid.New().String()
	if interview.CreatedAt.IsZero() {
		interview.CreatedAt = time.Now()
	}

	techstack, err := encodeJSON(interview.TechStack)
	if err != nil {
		return fmt.Errorf("sqlite: encoding techstack: %w", err)
	}
	questions, err := encodeJSON(interview.Questions)
	if err != nil {
		return fmt.Errorf("sqlite: encoding questions: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO interviews (`+interviewColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		interview.ID,
		interview.UserID,
		interview.Role,
		interview.Level,
		interview.Type,
		techstack,
		questions,
		interview.Finalized,
		interview.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting interview for user %s: %w", interview.UserID, err)
	}
	return nil
}

// GetByID retrieves a single interview.
func (s *interviewStore) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)

	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("interview", id)
		}
		return nil, fmt.Errorf("sqlite: getting interview %s: %w", id, err)
	}
	return iv, nil
}

// ListByUser returns every interview the user generated, newest first.
func (s *interviewStore) ListByUser(ctx context.Context, userID string) ([]model.Interview, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing interviews for user %s: %w", userID, err)
	}
	return collectInterviews(rows)
}

// ListLatest returns finalized interviews not owned by opts.ExcludeUserID.
func (s *interviewStore) ListLatest(ctx context.Context, opts repository.LatestOptions) ([]model.Interview, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE finalized = 1 AND user_id != ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		opts.ExcludeUserID,
		opts.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing latest interviews: %w", err)
	}
	return collectInterviews(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (*model.Interview, error) {
	var (
		iv        model.Interview
		techstack string
		questions string
	)
	if err := row.Scan(
		&iv.ID,
		&iv.UserID,
		&iv.Role,
		&iv.Level,
		&iv.Type,
		&techstack,
		&questions,
		&iv.Finalized,
		&iv.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeJSON(techstack, &iv.TechStack); err != nil {
		return nil, fmt.Errorf("decoding techstack: %w", err)
	}
	if err := decodeJSON(questions, &iv.Questions); err != nil {
		return nil, fmt.Errorf("decoding questions: %w", err)
	}
	return &iv, nil
}

func collectInterviews(rows *sql.Rows) ([]model.Interview, error) {
	defer rows.Close()

	interviews := []model.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning interview row: %w", err)
		}
		interviews = append(interviews, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating interview rows: %w", err)
	}
	return interviews, nil
}
