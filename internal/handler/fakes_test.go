package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/service"
	"github.com/sakif/interview-me/internal/voice"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// withUser marks every request as signed in as userID, standing in for
// auth.RequireAuth.
func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(r.Context(), userID)))
		})
	}
}

// === Authenticator ===

type fakeAuth struct {
	users map[string]*model.User

	signUpErr error
	signInErr error
	googleErr error

	lastSignUp  service.SignUpInput
	lastProfile *auth.GoogleProfile
}

func newFakeAuth(users ...*model.User) *fakeAuth {
	f := &fakeAuth{users: make(map[string]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeAuth) SignUp(_ context.Context, in service.SignUpInput) (*model.User, error) {
	f.lastSignUp = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &model.User{ID: "new-user", Name: in.Name, Email: in.Email}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*service.AuthResult, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return &service.AuthResult{User: u, Token: "token-" + u.ID}, nil
		}
	}
	return nil, apperror.UserNotFound()
}

func (f *fakeAuth) SignInWithGoogle(_ context.Context, p *auth.GoogleProfile) (*service.AuthResult, error) {
	f.lastProfile = p
	if f.googleErr != nil {
		return nil, f.googleErr
	}
	return &service.AuthResult{User: &model.User{ID: "g-user", Email: p.Email}, Token: "token-google"}, nil
}

func (f *fakeAuth) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

type fakeGoogle struct {
	profile *auth.GoogleProfile
	err     error
}

func (f *fakeGoogle) AuthURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, _ string) (*auth.GoogleProfile, error) {
	return f.profile, f.err
}

// === Interviews ===

type fakeInterviews struct {
	byID map[string]*model.Interview

	listErr     error
	generateErr error

	lastLimit    int
	lastGenerate service.GenerateInput
}

func newFakeInterviews(ivs ...*model.Interview) *fakeInterviews {
	f := &fakeInterviews{byID: make(map[string]*model.Interview)}
	for _, iv := range ivs {
		f.byID[iv.ID] = iv
	}
	return f
}

func (f *fakeInterviews) GetByID(_ context.Context, id string) (*model.Interview, error) {
	iv, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("interview", id)
	}
	return iv, nil
}

func (f *fakeInterviews) ListByUser(_ context.Context, userID string) ([]model.Interview, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Interview
	for _, iv := range f.byID {
		if iv.UserID == userID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeInterviews) ListLatest(_ context.Context, userID string, limit int) ([]model.Interview, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Interview
	for _, iv := range f.byID {
		if iv.UserID != userID && iv.Finalized {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeInterviews) Generate(_ context.Context, in service.GenerateInput) (*model.Interview, error) {
	f.lastGenerate = in
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	iv := &model.Interview{ID: "generated", UserID: in.UserID, Role: in.Role, Questions: []string{"Q1"}, Finalized: true}
	f.byID[iv.ID] = iv
	return iv, nil
}

func (f *fakeInterviews) Cards(_ context.Context, _ string, ivs []model.Interview) ([]service.Card, error) {
	cards := make([]service.Card, 0, len(ivs))
	for _, iv := range ivs {
		cards = append(cards, service.Card{ID: iv.ID, Title: iv.Role + " Interview"})
	}
	return cards, nil
}

// === Feedback ===

type fakeFeedbacks struct {
	latest    *model.Feedback
	createErr error

	lastTranscript []model.Message
}

func (f *fakeFeedbacks) Create(_ context.Context, interviewID, userID string, transcript []model.Message) (*model.Feedback, error) {
	f.lastTranscript = transcript
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Feedback{ID: "fb-1", InterviewID: interviewID, UserID: userID}, nil
}

func (f *fakeFeedbacks) GetForInterview(_ context.Context, interviewID, _ string) (*model.Feedback, error) {
	if f.latest == nil {
		return nil, apperror.NotFound("feedback", interviewID)
	}
	return f.latest, nil
}

func (f *fakeFeedbacks) CreateFeedback(ctx context.Context, interviewID, userID string, transcript []model.Message) (string, error) {
	fb, err := f.Create(ctx, interviewID, userID, transcript)
	if err != nil {
		return "", err
	}
	return fb.ID, nil
}

// === Voice ===

type fakeVoice struct {
	mu       sync.Mutex
	startErr error
	starts   []voice.StartRequest
	stops    []string
}

func (f *fakeVoice) Start(_ context.Context, req voice.StartRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if f.startErr != nil {
		return "", f.startErr
	}
	return "vendor-call", nil
}

func (f *fakeVoice) Stop(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, callID)
	return nil
}

func (f *fakeVoice) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stops)
}

func newTestSessions(t *testing.T) *auth.SessionService {
	t.Helper()
	s, err := auth.NewSessionService("handler-test-secret-123456")
	if err != nil {
		t.Fatalf("NewSessionService: %v", err)
	}
	return s
}
