package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

type userStore struct {
	coll *mongo.Collection
}

var _ repository.UserRepository = (*userStore)(nil)

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("mongo: inserting user %s: %w", user.Email, err)
	}
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, email)
}

func (s *userStore) findOne(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var u model.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: finding user %s: %w", key, err)
	}
	return &u, nil
}
