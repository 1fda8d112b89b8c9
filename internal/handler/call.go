package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/call"
	"github.com/sakif/interview-me/internal/model"
)

// maxEventBytes caps a webhook delivery. Vendors batch events, and the
// end-of-call report carries the whole transcript.
const maxEventBytes = 4 << 20

// Calls is the session registry behind the call routes.
type Calls interface {
	Create(params call.Params) (*call.Controller, error)
	Get(id string) (*call.Controller, error)
	Remove(id string)
}

// UserLookup resolves the signed-in user's display name for the assistant.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// InterviewLookup loads the question set for interview sessions.
type InterviewLookup interface {
	GetByID(ctx context.Context, id string) (*model.Interview, error)
}

// CallHandler drives call sessions for the browser and receives vendor
// webhooks.
//
// HANDLER RESPONSIBILITIES:
//   - HandleCreate      → new session, started immediately
//   - HandleStart       → start again after "Try Again"
//   - HandleGet         → poll the session state (toasts are delivered once)
//   - HandleDisconnect  → the user's "End" button
//   - HandleReset       → "Try Again" on a settled session
//   - HandleEvents      → vendor webhook; no user cookie, secret header instead
type CallHandler struct {
	calls      Calls
	users      UserLookup
	interviews InterviewLookup
	logger     *slog.Logger
}

func NewCallHandler(calls Calls, users UserLookup, interviews InterviewLookup, logger *slog.Logger) *CallHandler {
	return &CallHandler{calls: calls, users: users, interviews: interviews, logger: logger}
}

type createCallRequest struct {
	Type        call.SessionType `json:"type"`
	InterviewID string           `json:"interviewId"`
}

// HandleCreate creates a session and starts the vendor call.
//
// HTTP: POST /api/calls
// REQUEST BODY: {"type": "interview", "interviewId": "..."}
//
// A session whose call cannot be started is dropped again and the request
// fails with 502, so the client never polls a dead session.
func (h *CallHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createCallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	params, err := h.params(r.Context(), userID, req)
	if err != nil {
		logIfInternal(h.logger, "preparing call session", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}

	session, err := h.calls.Create(params)
	if err != nil {
		logIfInternal(h.logger, "creating call session", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}

	if err := session.Start(r.Context()); err != nil {
		h.calls.Remove(session.ID())
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "call_failed", Message: call.StartFailedMessage})
		return
	}

	writeJSON(w, http.StatusCreated, session.TakeState())
}

func (h *CallHandler) params(ctx context.Context, userID string, req createCallRequest) (call.Params, error) {
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		return call.Params{}, err
	}
	params := call.Params{
		Type:     req.Type,
		UserID:   userID,
		UserName: user.Name,
	}
	if req.Type != call.TypeInterview {
		return params, nil
	}

	if req.InterviewID == "" {
		return call.Params{}, apperror.ValidationFailed("interviewId", "interviewId is required")
	}
	iv, err := h.interviews.GetByID(ctx, req.InterviewID)
	if err != nil {
		return call.Params{}, err
	}
	params.InterviewID = iv.ID
	params.Questions = iv.Questions
	return params, nil
}

// HandleStart starts an INACTIVE session.
//
// HTTP: POST /api/calls/{id}/start
func (h *CallHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := session.Start(r.Context()); err != nil {
		if errors.Is(err, call.ErrAlreadyStarted) {
			writeError(w, callConflict(err))
			return
		}
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "call_failed", Message: call.StartFailedMessage})
		return
	}
	writeJSON(w, http.StatusOK, session.TakeState())
}

// HandleGet returns the session state. Pending toasts are consumed.
//
// HTTP: GET /api/calls/{id}
func (h *CallHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.TakeState())
}

// HandleDisconnect ends an ACTIVE call.
//
// HTTP: POST /api/calls/{id}/disconnect
func (h *CallHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := session.Disconnect(r.Context()); err != nil {
		writeError(w, callConflict(err))
		return
	}
	writeJSON(w, http.StatusOK, session.TakeState())
}

// HandleReset returns a settled session to INACTIVE.
//
// HTTP: POST /api/calls/{id}/reset
func (h *CallHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := session.Reset(); err != nil {
		writeError(w, callConflict(err))
		return
	}
	writeJSON(w, http.StatusOK, session.TakeState())
}

// HandleEvents applies vendor webhook events to a session in order.
//
// HTTP: POST /api/calls/{id}/events
// Auth: X-Voice-Secret
// REQUEST BODY: one event object or an array of them
func (h *CallHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := h.calls.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid event payload"))
		return
	}
	events, err := call.DecodeEvents(body)
	if err != nil {
		h.logger.Warn("rejecting call events", slog.String("session", id), slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid event payload"))
		return
	}

	for _, ev := range events {
		session.HandleEvent(r.Context(), ev)
	}
	writeJSON(w, http.StatusOK, map[string]int{"received": len(events)})
}

// owned loads the session named in the URL. Sessions of other users are
// reported as missing.
func (h *CallHandler) owned(w http.ResponseWriter, r *http.Request) (*call.Controller, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	session, err := h.calls.Get(id)
	if err == nil && session.UserID() != userID {
		err = apperror.NotFound("call session", id)
	}
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return session, true
}

// callConflict turns controller state errors into 409s.
func callConflict(err error) error {
	switch {
	case errors.Is(err, call.ErrAlreadyStarted):
		return &apperror.AppError{Err: apperror.ErrConflict, Message: "The call has already started"}
	case errors.Is(err, call.ErrNotActive):
		return &apperror.AppError{Err: apperror.ErrConflict, Message: "The call is not active"}
	case errors.Is(err, call.ErrNotSettled):
		return &apperror.AppError{Err: apperror.ErrConflict, Message: "The call has not finished yet"}
	}
	return err
}
