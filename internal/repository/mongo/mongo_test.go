package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

// These tests talk to a real server. Set MONGO_TEST_URI to run them,
// e.g. MONGO_TEST_URI=mongodb://localhost:27017.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	name := "interview_me_test_" + xid.New().String()
	db, err := New(context.Background(), uri, name)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.db.Drop(context.Background())
		db.Close()
	})
	return db
}

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := db.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.Users().GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, want %q", got.ID, u.ID)
	}

	err = db.Users().Create(ctx, &model.User{Name: "Dup", Email: "ada@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate Create() error = %v, want ErrConflict", err)
	}

	if _, err := db.Users().GetByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestInterviewsAndFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	for i, owner := range []string{"ada", "bob", "bob"} {
		iv := &model.Interview{
			UserID:    owner,
			Role:      owner + "-role",
			Type:      model.InterviewMixed,
			Finalized: true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Interviews().Create(ctx, iv); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	latest, err := db.Interviews().ListLatest(ctx, repository.LatestOptions{ExcludeUserID: "ada", Limit: 20})
	if err != nil {
		t.Fatalf("ListLatest() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("ListLatest() returned %d, want 2", len(latest))
	}
	if !latest[0].CreatedAt.After(latest[1].CreatedAt) {
		t.Error("ListLatest() not newest first")
	}

	mine, err := db.Interviews().ListByUser(ctx, "ada")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("ListByUser() returned %d, want 1", len(mine))
	}

	fb := &model.Feedback{InterviewID: mine[0].ID, UserID: "ada", TotalScore: 64}
	if err := db.Feedback().Create(ctx, fb); err != nil {
		t.Fatalf("Feedback Create() error = %v", err)
	}
	got, err := db.Feedback().GetLatest(ctx, mine[0].ID, "ada")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if got.TotalScore != 64 {
		t.Errorf("TotalScore = %d, want 64", got.TotalScore)
	}
}
