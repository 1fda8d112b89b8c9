package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/llm"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. Each has an error
// field per operation so tests can simulate a failing database.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeUserRepo struct {
	users     map[string]*model.User
	nextID    int
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

type fakeInterviewRepo struct {
	interviews map[string]*model.Interview
	nextID     int
	createErr  error
	listErr    error
	lastLatest repository.LatestOptions
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{interviews: make(map[string]*model.Interview)}
}

func (f *fakeInterviewRepo) Create(_ context.Context, iv *model.Interview) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	iv.ID = fmt.Sprintf("iv-%d", f.nextID)
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Date(2026, 1, 1, 0, 0, f.nextID, 0, time.UTC)
	}
	stored := *iv
	f.interviews[iv.ID] = &stored
	return nil
}

func (f *fakeInterviewRepo) GetByID(_ context.Context, id string) (*model.Interview, error) {
	iv, ok := f.interviews[id]
	if !ok {
		return nil, apperror.NotFound("interview", id)
	}
	cp := *iv
	return &cp, nil
}

func (f *fakeInterviewRepo) sorted(keep func(*model.Interview) bool) []model.Interview {
	var out []model.Interview
	for _, iv := range f.interviews {
		if keep(iv) {
			out = append(out, *iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeInterviewRepo) ListByUser(_ context.Context, userID string) ([]model.Interview, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(func(iv *model.Interview) bool { return iv.UserID == userID }), nil
}

func (f *fakeInterviewRepo) ListLatest(_ context.Context, opts repository.LatestOptions) ([]model.Interview, error) {
	f.lastLatest = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.sorted(func(iv *model.Interview) bool { return iv.Finalized && iv.UserID != opts.ExcludeUserID })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	feedback  []*model.Feedback
	createErr error
	latestErr error
}

func (f *fakeFeedbackRepo) Create(_ context.Context, fb *model.Feedback) error {
	if f.createErr != nil {
		return f.createErr
	}
	fb.ID = fmt.Sprintf("fb-%d", len(f.feedback)+1)
	stored := *fb
	f.feedback = append(f.feedback, &stored)
	return nil
}

func (f *fakeFeedbackRepo) GetByID(_ context.Context, id string) (*model.Feedback, error) {
	for _, fb := range f.feedback {
		if fb.ID == id {
			cp := *fb
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("feedback", id)
}

func (f *fakeFeedbackRepo) GetLatest(_ context.Context, interviewID, userID string) (*model.Feedback, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	for i := len(f.feedback) - 1; i >= 0; i-- {
		fb := f.feedback[i]
		if fb.InterviewID == interviewID && fb.UserID == userID {
			cp := *fb
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("feedback", interviewID)
}

// =========================================================================
// FAKE COLLABORATORS
// =========================================================================

type fakeGenerator struct {
	questions   []string
	draft       *llm.FeedbackDraft
	err         error
	questionReq llm.QuestionRequest
	feedbackReq llm.FeedbackRequest
}

func (f *fakeGenerator) GenerateQuestions(_ context.Context, req llm.QuestionRequest) ([]string, error) {
	f.questionReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func (f *fakeGenerator) GenerateFeedback(_ context.Context, req llm.FeedbackRequest) (*llm.FeedbackDraft, error) {
	f.feedbackReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeArchive) Put(_ context.Context, key, _ string, body io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) FeedbackReady(_ context.Context, user *model.User, _ *model.Interview, fb *model.Feedback) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, user.Email+":"+fb.ID)
	return nil
}

var errDatabase = errors.New("database is on fire")
