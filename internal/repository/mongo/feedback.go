package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

type feedbackStore struct {
	coll *mongo.Collection
}

var _ repository.FeedbackRepository = (*feedbackStore)(nil)

func (s *feedbackStore) Create(ctx context.Context, fb *model.Feedback) error {
	fb.ID = xid.New().String()
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	if _, err := s.coll.InsertOne(ctx, fb); err != nil {
		return fmt.Errorf("mongo: inserting feedback for interview %s: %w", fb.InterviewID, err)
	}
	return nil
}

func (s *feedbackStore) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	var fb model.Feedback
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&fb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("feedback", id)
		}
		return nil, fmt.Errorf("mongo: finding feedback %s: %w", id, err)
	}
	return &fb, nil
}

func (s *feedbackStore) GetLatest(ctx context.Context, interviewID, userID string) (*model.Feedback, error) {
	filter := bson.M{"interviewId": interviewID, "userId": userID}

	var fb model.Feedback
	err := s.coll.FindOne(ctx, filter, options.FindOne().SetSort(newestFirst())).Decode(&fb)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("feedback for interview", interviewID)
		}
		return nil, fmt.Errorf("mongo: finding feedback for interview %s: %w", interviewID, err)
	}
	return &fb, nil
}
