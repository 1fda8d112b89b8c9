package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/handler"
	"github.com/sakif/interview-me/internal/model"
)

// newInterviewRouter mounts the interview and feedback routes the way the
// server does, signed in as userID.
func newInterviewRouter(userID string, ivs *fakeInterviews, fbs *fakeFeedbacks) http.Handler {
	h := handler.NewInterviewHandler(ivs, fbs, testLogger())
	fh := handler.NewFeedbackHandler(fbs, testLogger())

	r := chi.NewRouter()
	r.Post("/api/voice/generate", h.HandleVoiceGenerate)
	r.Group(func(r chi.Router) {
		r.Use(withUser(userID))
		r.Get("/api/dashboard", h.HandleDashboard)
		r.Get("/api/interviews", h.HandleList)
		r.Get("/api/interviews/latest", h.HandleLatest)
		r.Post("/api/interviews/generate", h.HandleGenerate)
		r.Get("/api/interviews/{id}", h.HandleGetByID)
		r.Get("/api/interviews/{id}/feedback", h.HandleFeedback)
		r.Post("/api/feedback", fh.HandleCreate)
	})
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sampleInterviews() *fakeInterviews {
	return newFakeInterviews(
		&model.Interview{ID: "own", UserID: "u1", Role: "Backend", Finalized: true},
		&model.Interview{ID: "other", UserID: "u2", Role: "Frontend", Finalized: true},
		&model.Interview{ID: "draft", UserID: "u2", Role: "Data", Finalized: false},
	)
}

func TestInterviewHandler_Dashboard(t *testing.T) {
	router := newInterviewRouter("u1", sampleInterviews(), &fakeFeedbacks{})

	rr := serve(router, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var res handler.DashboardResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	require.Len(t, res.YourInterviews, 1)
	assert.Equal(t, "own", res.YourInterviews[0].ID)
	require.Len(t, res.LatestInterviews, 1)
	assert.Equal(t, "other", res.LatestInterviews[0].ID)
	assert.True(t, res.HasPastInterviews)
	assert.True(t, res.HasUpcomingInterviews)
}

func TestInterviewHandler_DashboardEmpty(t *testing.T) {
	router := newInterviewRouter("u9", newFakeInterviews(), &fakeFeedbacks{})

	rr := serve(router, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"yourInterviews":[]`)
	assert.Contains(t, rr.Body.String(), `"hasPastInterviews":false`)
}

func TestInterviewHandler_ListError(t *testing.T) {
	ivs := sampleInterviews()
	ivs.listErr = errors.New("connection reset")
	router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

	rr := serve(router, http.MethodGet, "/api/interviews", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
}

func TestInterviewHandler_Latest(t *testing.T) {
	t.Run("limit passed through", func(t *testing.T) {
		ivs := sampleInterviews()
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodGet, "/api/interviews/latest?limit=5", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 5, ivs.lastLimit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		router := newInterviewRouter("u1", sampleInterviews(), &fakeFeedbacks{})

		for _, q := range []string{"0", "abc", "101"} {
			rr := serve(router, http.MethodGet, "/api/interviews/latest?limit="+q, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", q)
		}
	})
}

func TestInterviewHandler_GetByID(t *testing.T) {
	router := newInterviewRouter("u1", sampleInterviews(), &fakeFeedbacks{})

	rr := serve(router, http.MethodGet, "/api/interviews/other", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"Frontend"`)

	rr = serve(router, http.MethodGet, "/api/interviews/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "not_found", res.Error)
}

func TestInterviewHandler_Feedback(t *testing.T) {
	fbs := &fakeFeedbacks{latest: &model.Feedback{ID: "fb-9", InterviewID: "own", TotalScore: 72}}
	router := newInterviewRouter("u1", sampleInterviews(), fbs)

	rr := serve(router, http.MethodGet, "/api/interviews/own/feedback", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Interview model.Interview `json:"interview"`
		Feedback  model.Feedback  `json:"feedback"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "own", res.Interview.ID)
	assert.Equal(t, 72, res.Feedback.TotalScore)

	none := newInterviewRouter("u1", sampleInterviews(), &fakeFeedbacks{})
	assert.Equal(t, http.StatusNotFound, serve(none, http.MethodGet, "/api/interviews/own/feedback", "").Code)
}

func TestInterviewHandler_Generate(t *testing.T) {
	t.Run("user from session", func(t *testing.T) {
		ivs := newFakeInterviews()
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/interviews/generate",
			`{"role":"Backend","level":"Senior","type":"technical","techstack":"go,sql","amount":5,"userid":"spoofed"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"interviewId":"generated"`)
		assert.Equal(t, "u1", ivs.lastGenerate.UserID)
		assert.Equal(t, "5", ivs.lastGenerate.Amount)
		assert.Equal(t, "go,sql", ivs.lastGenerate.TechStack)
	})

	t.Run("voice workflow carries userid and string amount", func(t *testing.T) {
		ivs := newFakeInterviews()
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/voice/generate",
			`{"role":"Backend","level":"Junior","type":"mix","techstack":"react","amount":"3","userid":"u7"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "u7", ivs.lastGenerate.UserID)
		assert.Equal(t, "3", ivs.lastGenerate.Amount)
	})

	t.Run("validation error", func(t *testing.T) {
		ivs := newFakeInterviews()
		ivs.generateErr = apperror.ValidationFailed("role", "role is required")
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/interviews/generate", `{"amount":5}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "role is required")
	})

	t.Run("generator not configured", func(t *testing.T) {
		ivs := newFakeInterviews()
		ivs.generateErr = apperror.Unavailable("Question generation is not available")
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/interviews/generate", `{"role":"Backend"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("internal failure uses fallback message", func(t *testing.T) {
		ivs := newFakeInterviews()
		ivs.generateErr = errors.New("quota exceeded")
		router := newInterviewRouter("u1", ivs, &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/interviews/generate", `{"role":"Backend"}`)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "Failed to generate the interview")
	})

	t.Run("malformed amount", func(t *testing.T) {
		router := newInterviewRouter("u1", newFakeInterviews(), &fakeFeedbacks{})

		rr := serve(router, http.MethodPost, "/api/interviews/generate", `{"role":"Backend","amount":[1]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestFeedbackHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		fbs := &fakeFeedbacks{}
		router := newInterviewRouter("u1", sampleInterviews(), fbs)

		rr := serve(router, http.MethodPost, "/api/feedback",
			`{"interviewId":"own","transcript":[{"role":"assistant","content":"Hi"},{"role":"user","content":"Hello"}]}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"success":true,"feedbackId":"fb-1"}`, rr.Body.String())
		assert.Len(t, fbs.lastTranscript, 2)
	})

	t.Run("failure", func(t *testing.T) {
		fbs := &fakeFeedbacks{createErr: errors.New("llm timeout")}
		router := newInterviewRouter("u1", sampleInterviews(), fbs)

		rr := serve(router, http.MethodPost, "/api/feedback", `{"interviewId":"own","transcript":[{"role":"user","content":"Hello"}]}`)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"success":false,"message":"We couldn't save your feedback."}`, rr.Body.String())
	})
}
