// Package mongo implements the repository interfaces on MongoDB.
//
// Collections mirror the document layout the web client expects:
// users, interviews and feedback, each keyed by an xid string in _id.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/interview-me/internal/repository"
)

const (
	usersCollection      = "users"
	interviewsCollection = "interviews"
	feedbackCollection   = "feedback"

	connectTimeout = 10 * time.Second
)

// DB holds the client and database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Store = (*DB)(nil)

// New connects, pings, and ensures the indexes the queries rely on.
func New(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	d := &DB{client: client, db: client.Database(database)}
	if err := d.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}
	return d, nil
}

// Close disconnects the client.
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *DB) Users() repository.UserRepository {
	return &userStore{coll: d.db.Collection(usersCollection)}
}

func (d *DB) Interviews() repository.InterviewRepository {
	return &interviewStore{coll: d.db.Collection(interviewsCollection)}
}

func (d *DB) Feedback() repository.FeedbackRepository {
	return &feedbackStore{coll: d.db.Collection(feedbackCollection)}
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		interviewsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "finalized", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		feedbackCollection: {
			{Keys: bson.D{{Key: "interviewId", Value: 1}, {Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// newestFirst sorts by creation time, breaking ties on the (time-ordered) xid.
func newestFirst() bson.D {
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}
