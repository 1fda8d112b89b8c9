package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/service"
)

// Interviews is the part of service.InterviewService the handlers use.
type Interviews interface {
	GetByID(ctx context.Context, id string) (*model.Interview, error)
	ListByUser(ctx context.Context, userID string) ([]model.Interview, error)
	ListLatest(ctx context.Context, userID string, limit int) ([]model.Interview, error)
	Generate(ctx context.Context, in service.GenerateInput) (*model.Interview, error)
	Cards(ctx context.Context, userID string, interviews []model.Interview) ([]service.Card, error)
}

// Feedbacks is the part of service.FeedbackService the handlers use.
type Feedbacks interface {
	Create(ctx context.Context, interviewID, userID string, transcript []model.Message) (*model.Feedback, error)
	GetForInterview(ctx context.Context, interviewID, userID string) (*model.Feedback, error)
}

// InterviewHandler serves the dashboard, interview lookups and generation.
type InterviewHandler struct {
	interviews Interviews
	feedback   Feedbacks
	logger     *slog.Logger
}

func NewInterviewHandler(interviews Interviews, feedback Feedbacks, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, feedback: feedback, logger: logger}
}

// DashboardResponse is the home page: the user's own interviews and the
// latest interviews others generated, both as cards.
type DashboardResponse struct {
	YourInterviews        []service.Card `json:"yourInterviews"`
	LatestInterviews      []service.Card `json:"latestInterviews"`
	HasPastInterviews     bool           `json:"hasPastInterviews"`
	HasUpcomingInterviews bool           `json:"hasUpcomingInterviews"`
}

// HandleDashboard
//
// HTTP: GET /api/dashboard
// Auth: Required
func (h *InterviewHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ctx := r.Context()

	own, err := h.interviews.ListByUser(ctx, userID)
	if err != nil {
		h.fail(w, "dashboard: listing own interviews", err)
		return
	}
	latest, err := h.interviews.ListLatest(ctx, userID, 0)
	if err != nil {
		h.fail(w, "dashboard: listing latest interviews", err)
		return
	}

	ownCards, err := h.interviews.Cards(ctx, userID, own)
	if err != nil {
		h.fail(w, "dashboard: building cards", err)
		return
	}
	latestCards, err := h.interviews.Cards(ctx, userID, latest)
	if err != nil {
		h.fail(w, "dashboard: building cards", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		YourInterviews:        ownCards,
		LatestInterviews:      latestCards,
		HasPastInterviews:     len(ownCards) > 0,
		HasUpcomingInterviews: len(latestCards) > 0,
	})
}

// HandleList returns the user's own interviews, newest first.
//
// HTTP: GET /api/interviews
func (h *InterviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	list, err := h.interviews.ListByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "listing interviews", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilInterviews(list))
}

// HandleLatest returns finalized interviews of other users.
//
// HTTP: GET /api/interviews/latest?limit=20
func (h *InterviewHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	list, err := h.interviews.ListLatest(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "listing latest interviews", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilInterviews(list))
}

// HandleGetByID
//
// HTTP: GET /api/interviews/{id}
func (h *InterviewHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	iv, err := h.interviews.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "getting interview", err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// HandleFeedback returns the caller's latest feedback for an interview.
//
// HTTP: GET /api/interviews/{id}/feedback
func (h *InterviewHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	iv, err := h.interviews.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, "getting interview", err)
		return
	}
	fb, err := h.feedback.GetForInterview(r.Context(), id, userID)
	if err != nil {
		h.fail(w, "getting feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"interview": iv,
		"feedback":  fb,
	})
}

// generateRequest accepts amount as either a number or a string; the
// voice workflow sends whichever its extraction produced.
type generateRequest struct {
	Type      string         `json:"type"`
	Role      string         `json:"role"`
	Level     string         `json:"level"`
	TechStack string         `json:"techstack"`
	Amount    flexibleString `json:"amount"`
	UserID    string         `json:"userid"`
}

func (g generateRequest) input(userID string) service.GenerateInput {
	return service.GenerateInput{
		UserID:    userID,
		Role:      g.Role,
		Level:     g.Level,
		Type:      g.Type,
		TechStack: g.TechStack,
		Amount:    string(g.Amount),
	}
}

type generateResponse struct {
	Success     bool             `json:"success"`
	InterviewID string           `json:"interviewId"`
	Interview   *model.Interview `json:"interview"`
}

// HandleGenerate generates an interview for the signed-in user.
//
// HTTP: POST /api/interviews/generate
// REQUEST BODY: {"role": "...", "level": "...", "type": "technical", "techstack": "go,sql", "amount": 5}
func (h *InterviewHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.generate(w, r, req.input(userID))
}

// HandleVoiceGenerate is the tool endpoint the voice workflow calls once it
// has collected the interview preferences. The user comes from the "userid"
// variable the call was started with.
//
// HTTP: POST /api/voice/generate
// Auth: X-Voice-Secret
func (h *InterviewHandler) HandleVoiceGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.generate(w, r, req.input(req.UserID))
}

func (h *InterviewHandler) generate(w http.ResponseWriter, r *http.Request, in service.GenerateInput) {
	iv, err := h.interviews.Generate(r.Context(), in)
	if err != nil {
		logIfInternal(h.logger, "generating interview", err, slog.String("userID", in.UserID))
		writeErrorWithFallback(w, err, "Failed to generate the interview")
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{Success: true, InterviewID: iv.ID, Interview: iv})
}

func (h *InterviewHandler) fail(w http.ResponseWriter, msg string, err error) {
	logIfInternal(h.logger, msg, err)
	writeError(w, err)
}

func nonNilInterviews(list []model.Interview) []model.Interview {
	if list == nil {
		return []model.Interview{}
	}
	return list
}

// flexibleString decodes a JSON string or number into its text form.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleString(n.String())
	return nil
}
