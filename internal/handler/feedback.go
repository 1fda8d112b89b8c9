package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/model"
)

// FeedbackHandler creates feedback from a transcript posted by the client.
// Calls run through the controller instead; this route serves clients that
// drive the voice SDK themselves.
type FeedbackHandler struct {
	feedback Feedbacks
	logger   *slog.Logger
}

func NewFeedbackHandler(feedback Feedbacks, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

type createFeedbackRequest struct {
	InterviewID string          `json:"interviewId"`
	Transcript  []model.Message `json:"transcript"`
}

type createFeedbackResponse struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedbackId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// HandleCreate
//
// HTTP: POST /api/feedback
// REQUEST BODY: {"interviewId": "...", "transcript": [{"role": "user", "content": "..."}]}
func (h *FeedbackHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	fb, err := h.feedback.Create(r.Context(), req.InterviewID, userID, req.Transcript)
	if err != nil {
		logIfInternal(h.logger, "error saving feedback", err, slog.String("interviewID", req.InterviewID))
		status, _ := statusFor(err)
		message, _ := publicMessage(err, "We couldn't save your feedback.")
		writeJSON(w, status, createFeedbackResponse{Success: false, Message: message})
		return
	}

	writeJSON(w, http.StatusCreated, createFeedbackResponse{Success: true, FeedbackID: fb.ID})
}
