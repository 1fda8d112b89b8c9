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

type interviewStore struct {
	coll *mongo.Collection
}

var _ repository.InterviewRepository = (*interviewStore)(nil)

func (s *interviewStore) Create(ctx context.Context, interview *model.Interview) error {
	interview.ID = xid.New().String()
	if interview.CreatedAt.IsZero() {
		interview.CreatedAt = time.Now()
	}
	if interview.TechStack == nil {
		interview.TechStack = []string{}
	}
	if interview.Questions == nil {
		interview.Questions = []string{}
	}

	if _, err := s.coll.InsertOne(ctx, interview); err != nil {
		return fmt.Errorf("mongo: inserting interview for user %s: %w", interview.UserID, err)
	}
	return nil
}

func (s *interviewStore) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	var iv model.Interview
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&iv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("interview", id)
		}
		return nil, fmt.Errorf("mongo: finding interview %s: %w", id, err)
	}
	return &iv, nil
}

func (s *interviewStore) ListByUser(ctx context.Context, userID string) ([]model.Interview, error) {
	return s.find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst()))
}

func (s *interviewStore) ListLatest(ctx context.Context, opts repository.LatestOptions) ([]model.Interview, error) {
	filter := bson.M{
		"finalized": true,
		"userId":    bson.M{"$ne": opts.ExcludeUserID},
	}
	return s.find(ctx, filter, options.Find().SetSort(newestFirst()).SetLimit(int64(opts.Limit)))
}

func (s *interviewStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Interview, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: querying interviews: %w", err)
	}
	defer cursor.Close(ctx)

	interviews := []model.Interview{}
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, fmt.Errorf("mongo: decoding interviews: %w", err)
	}
	return interviews, nil
}
