// Package repository declares the storage contracts used by the service layer.
//
// Two backends implement them: repository/sqlite (default, single file) and
// repository/mongo (document store). Every method returns an
// apperror.ErrNotFound-wrapping error when the requested record is missing.
package repository

import (
	"context"

	"github.com/sakif/interview-me/internal/model"
)

// LatestOptions filters the "latest interviews" listing.
type LatestOptions struct {
	ExcludeUserID string // interviews owned by this user are skipped
	Limit         int
}

type UserRepository interface {
	// Create assigns ID and CreatedAt. A duplicate email yields apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type InterviewRepository interface {
	Create(ctx context.Context, interview *model.Interview) error
	GetByID(ctx context.Context, id string) (*model.Interview, error)
	// ListByUser returns the user's interviews, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Interview, error)
	// ListLatest returns finalized interviews of other users, newest first.
	ListLatest(ctx context.Context, opts LatestOptions) ([]model.Interview, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.Feedback) error
	GetByID(ctx context.Context, id string) (*model.Feedback, error)
	// GetLatest returns the most recent feedback the user received for the interview.
	GetLatest(ctx context.Context, interviewID, userID string) (*model.Feedback, error)
}

// Store bundles the three repositories a backend provides.
type Store interface {
	Users() UserRepository
	Interviews() InterviewRepository
	Feedback() FeedbackRepository
	Close() error
}
