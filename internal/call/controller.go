// Package call implements the call-session controller: the state machine
// that tracks one voice session, accumulates its transcript and decides when
// and how the session ends.
//
// STATE MACHINE:
//
//	INACTIVE ──Start──▶ CONNECTING ──call-start──▶ ACTIVE
//	    ▲                   │ call-end                │ user disconnect
//	    │ start failed      │ user disconnect         │ end phrase
//	    └───────────────────┤ connect timeout         │ silence watchdog
//	                        ▼                         ▼ call-end
//	                     FINISHED ◀───────────────────┘
//	                        │ interview sessions
//	                        ▼
//	              GENERATING_FEEDBACK
//
// FINISHED is entered at most once per attempt and the vendor stop call is
// issued at most once. Reset starts a new attempt from INACTIVE; a vendor
// start that returns after its attempt was reset is stopped and dropped.
// The watchdog runs from Start, so a call the vendor never connects ends
// after IdleTimeout like a silent one.
//
// All state is guarded by one mutex. Webhook deliveries, user actions and
// watchdog firings each take it, decide, and release it before any side
// effect (vendor stop, feedback creation) runs.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/voice"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInactive           Status = "INACTIVE"
	StatusConnecting         Status = "CONNECTING"
	StatusActive             Status = "ACTIVE"
	StatusFinished           Status = "FINISHED"
	StatusGeneratingFeedback Status = "GENERATING_FEEDBACK"
)

// SessionType selects what the call is for.
type SessionType string

const (
	// TypeGenerate runs the vendor workflow that collects interview
	// preferences and generates questions.
	TypeGenerate SessionType = "generate"
	// TypeInterview runs the interviewer assistant over stored questions.
	TypeInterview SessionType = "interview"
)

// EndReason records why an ACTIVE call finished.
type EndReason string

const (
	EndUser    EndReason = "user"
	EndKeyword EndReason = "keyword"
	EndIdle    EndReason = "idle"
	EndRemote  EndReason = "remote"
)

const (
	// StartFailedMessage is shown when the vendor refuses to start a call.
	StartFailedMessage = "Failed to start the interview. Please try again."
	// FeedbackFailedMessage is shown when feedback could not be saved.
	FeedbackFailedMessage = "We couldn't save your feedback."

	inProgressMessage = "Interview in progress..."
	stopTimeout       = 10 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("call: session already started")
	ErrNotActive      = errors.New("call: session is not active")
	ErrNotSettled     = errors.New("call: session has not finished yet")
)

// Voice starts and stops vendor calls.
type Voice interface {
	Start(ctx context.Context, req voice.StartRequest) (string, error)
	Stop(ctx context.Context, callID string) error
}

// FeedbackCreator turns a finished interview transcript into stored
// feedback and returns the new feedback ID.
type FeedbackCreator interface {
	CreateFeedback(ctx context.Context, interviewID, userID string, transcript []model.Message) (string, error)
}

// Params identify what a session is about.
type Params struct {
	Type        SessionType
	UserID      string
	UserName    string
	InterviewID string
	Questions   []string
}

// Config is the per-session runtime configuration.
type Config struct {
	WorkflowID      string
	Assistant       *voice.Assistant
	ServerURL       string
	IdleTimeout     time.Duration
	FeedbackTimeout time.Duration
}

// Caption is the live, not yet final, transcript of the current speaker.
type Caption struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Notice is a transient message for the user (a toast).
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// State is a point-in-time copy of a session.
type State struct {
	ID              string          `json:"id"`
	Type            SessionType     `json:"type"`
	InterviewID     string          `json:"interviewId,omitempty"`
	Status          Status          `json:"status"`
	Messages        []model.Message `json:"messages"`
	Caption         *Caption        `json:"caption,omitempty"`
	Speaking        bool            `json:"speaking"`
	LastMessage     string          `json:"lastMessage"`
	DisplayMessage  string          `json:"displayMessage"`
	LastInteraction time.Time       `json:"lastInteraction"`
	EndReason       EndReason       `json:"endReason,omitempty"`
	Settled         bool            `json:"settled"`
	Redirect        string          `json:"redirect,omitempty"`
	FeedbackID      string          `json:"feedbackId,omitempty"`
	Notices         []Notice        `json:"notices,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Controller owns one call session.
type Controller struct {
	id       string
	params   Params
	cfg      Config
	voice    Voice
	feedback FeedbackCreator
	clock    Clock
	logger   *slog.Logger

	mu              sync.Mutex
	attempt         int
	status          Status
	callID          string
	messages        []model.Message
	caption         *Caption
	speaking        bool
	lastMessage     string
	lastInteraction time.Time
	endReason       EndReason
	finished        bool
	stopRequested   bool
	stopIssued      bool
	watchdog        Timer
	settled         bool
	settledAt       time.Time
	redirect        string
	feedbackID      string
	notices         []Notice
	done            chan struct{}
	createdAt       time.Time
	inactiveSince   time.Time
}

// effects are side effects decided under the lock and run after it.
type effects struct {
	stopCallID string
	transcript []model.Message
	feedback   bool
}

// NewController validates params and creates an INACTIVE session.
func NewController(id string, params Params, cfg Config, v Voice, fc FeedbackCreator, clock Clock, logger *slog.Logger) (*Controller, error) {
	switch params.Type {
	case TypeGenerate:
		if params.UserID == "" {
			return nil, apperror.ValidationFailed("userId", "a signed-in user is required")
		}
	case TypeInterview:
		if params.InterviewID == "" {
			return nil, apperror.ValidationFailed("interviewId", "interview id is required")
		}
		if params.UserID == "" {
			return nil, apperror.ValidationFailed("userId", "a signed-in user is required")
		}
	default:
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown session type %q", params.Type))
	}
	if cfg.IdleTimeout <= 0 {
		return nil, errors.New("call: idle timeout must be positive")
	}
	if cfg.FeedbackTimeout <= 0 {
		cfg.FeedbackTimeout = time.Minute
	}
	if clock == nil {
		clock = SystemClock
	}

	now := clock.Now()
	return &Controller{
		id:            id,
		params:        params,
		cfg:           cfg,
		voice:         v,
		feedback:      fc,
		clock:         clock,
		logger:        logger.With(slog.String("session", id), slog.String("type", string(params.Type))),
		status:        StatusInactive,
		done:          make(chan struct{}),
		createdAt:     now,
		inactiveSince: now,
	}, nil
}

func (c *Controller) ID() string { return c.id }

// UserID returns the owner of the session.
func (c *Controller) UserID() string { return c.params.UserID }

// Done is closed once the current attempt has settled on a redirect.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// FormatQuestions renders questions as the "- question" list the
// interviewer assistant expects, one per line.
func FormatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}

func (c *Controller) startRequest() voice.StartRequest {
	req := voice.StartRequest{
		ServerURL: c.cfg.ServerURL,
		Metadata:  map[string]string{"sessionId": c.id},
	}
	switch c.params.Type {
	case TypeGenerate:
		req.WorkflowID = c.cfg.WorkflowID
		req.Variables = map[string]string{
			"username": c.params.UserName,
			"userid":   c.params.UserID,
		}
	case TypeInterview:
		req.Assistant = c.cfg.Assistant
		req.Variables = map[string]string{
			"questions": FormatQuestions(c.params.Questions),
		}
		req.Metadata["interviewId"] = c.params.InterviewID
	}
	return req
}

// Start moves INACTIVE → CONNECTING and asks the vendor to start the call.
// On failure the session returns to INACTIVE with a toast.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusInactive {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.attempt++
	attempt := c.attempt
	c.status = StatusConnecting
	c.lastInteraction = c.clock.Now()
	c.armWatchdogLocked(c.cfg.IdleTimeout)
	req := c.startRequest()
	c.mu.Unlock()

	callID, err := c.voice.Start(ctx, req)

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("call: starting session %s: %w", c.id, err)
		}
		c.logger.Warn("dropping call from a reset attempt", slog.String("callID", callID))
		c.run(ctx, effects{stopCallID: callID})
		return nil
	}
	if err != nil {
		c.logger.Error("failed to start call", slog.String("error", err.Error()))
		if c.status == StatusConnecting {
			c.status = StatusInactive
			c.inactiveSince = c.clock.Now()
			c.stopWatchdogLocked()
		}
		c.noticeLocked("error", StartFailedMessage)
		c.mu.Unlock()
		return fmt.Errorf("call: starting session %s: %w", c.id, err)
	}

	c.callID = callID
	var fx effects
	// a disconnect can land before the vendor answered with the call id
	if c.stopRequested && !c.stopIssued {
		c.stopIssued = true
		fx.stopCallID = callID
	}
	c.mu.Unlock()

	c.logger.Info("call session connecting", slog.String("callID", callID))
	c.run(ctx, fx)
	return nil
}

// HandleEvent applies one vendor event.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) {
	c.mu.Lock()
	c.lastInteraction = c.clock.Now()

	var fx effects
	switch ev.Type {
	case EventCallStart:
		if c.status == StatusConnecting {
			c.status = StatusActive
			c.armWatchdogLocked(c.cfg.IdleTimeout)
			c.logger.Info("call active")
		}

	case EventCallEnd:
		if c.status == StatusConnecting || c.status == StatusActive {
			fx = c.finishLocked(EndRemote, false)
		}

	case EventSpeechStart:
		if c.status == StatusActive {
			c.speaking = true
		}

	case EventSpeechEnd:
		if c.status == StatusActive {
			c.speaking = false
		}

	case EventMessage:
		if c.status == StatusActive && ev.Message != nil && ev.Message.Type == MessageTranscript {
			fx = c.transcriptLocked(ev.Message)
		}

	case EventError:
		if !IsNormalMeetingEnd(ev.Error) {
			c.logger.Warn("voice sdk error", slog.String("error", ev.Error))
			c.noticeLocked("error", ev.Error)
		}

	default:
		c.logger.Debug("ignoring unknown call event", slog.String("event", string(ev.Type)))
	}
	c.mu.Unlock()

	c.run(ctx, fx)
}

func (c *Controller) transcriptLocked(m *MessageEvent) effects {
	if m.TranscriptType != TranscriptFinal {
		c.caption = &Caption{Role: m.Role, Text: m.Transcript}
		return effects{}
	}

	c.caption = nil
	c.messages = append(c.messages, model.Message{Role: m.Role, Content: m.Transcript})
	c.lastMessage = m.Transcript

	if m.Role == model.RoleUser && ContainsEndPhrase(m.Transcript) {
		c.logger.Info("end phrase detected")
		return c.finishLocked(EndKeyword, true)
	}
	return effects{}
}

// Disconnect is the user's "End" action. It also abandons a call that is
// still connecting.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusActive && c.status != StatusConnecting {
		c.mu.Unlock()
		return ErrNotActive
	}
	fx := c.finishLocked(EndUser, true)
	c.mu.Unlock()

	c.run(ctx, fx)
	return nil
}

func (c *Controller) onIdle() {
	c.mu.Lock()
	if c.status != StatusActive && c.status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	idle := c.clock.Now().Sub(c.lastInteraction)
	if idle < c.cfg.IdleTimeout {
		c.armWatchdogLocked(c.cfg.IdleTimeout - idle)
		c.mu.Unlock()
		return
	}
	c.logger.Info("call idle, disconnecting",
		slog.Duration("idle", idle),
		slog.String("status", string(c.status)),
	)
	fx := c.finishLocked(EndIdle, true)
	c.mu.Unlock()

	c.run(context.Background(), fx)
}

func (c *Controller) armWatchdogLocked(d time.Duration) {
	c.stopWatchdogLocked()
	c.watchdog = c.clock.AfterFunc(d, c.onIdle)
}

func (c *Controller) stopWatchdogLocked() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

// finishLocked enters FINISHED exactly once and decides the follow-up.
func (c *Controller) finishLocked(reason EndReason, stop bool) effects {
	if c.finished {
		return effects{}
	}
	c.finished = true
	c.status = StatusFinished
	c.endReason = reason
	c.speaking = false
	c.caption = nil
	c.stopWatchdogLocked()

	var fx effects
	if stop {
		c.stopRequested = true
		if c.callID != "" && !c.stopIssued {
			c.stopIssued = true
			fx.stopCallID = c.callID
		}
	}

	c.logger.Info("call finished",
		slog.String("reason", string(reason)),
		slog.Int("messages", len(c.messages)),
	)

	switch c.params.Type {
	case TypeGenerate:
		c.settleLocked("/")
	case TypeInterview:
		c.status = StatusGeneratingFeedback
		fx.feedback = true
		fx.transcript = append([]model.Message(nil), c.messages...)
	}
	return fx
}

func (c *Controller) run(ctx context.Context, fx effects) {
	if fx.stopCallID != "" {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		if err := c.voice.Stop(stopCtx, fx.stopCallID); err != nil {
			c.logger.Warn("failed to stop call", slog.String("error", err.Error()))
		}
		cancel()
	}
	if fx.feedback {
		go c.generateFeedback(fx.transcript)
	}
}

func (c *Controller) generateFeedback(transcript []model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FeedbackTimeout)
	defer cancel()

	id, err := c.feedback.CreateFeedback(ctx, c.params.InterviewID, c.params.UserID, transcript)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil || id == "" {
		attrs := []any{slog.String("interviewID", c.params.InterviewID)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		c.logger.Error("error saving feedback", attrs...)
		c.noticeLocked("error", FeedbackFailedMessage)
		c.settleLocked("/")
		return
	}

	c.feedbackID = id
	c.settleLocked("/interview/" + c.params.InterviewID + "/feedback")
}

func (c *Controller) settleLocked(redirect string) {
	if c.settled {
		return
	}
	c.settled = true
	c.settledAt = c.clock.Now()
	c.redirect = redirect
	close(c.done)
}

func (c *Controller) noticeLocked(level, message string) {
	c.notices = append(c.notices, Notice{Level: level, Message: message})
}

// Reset is "Try Again": a settled session goes back to INACTIVE with an
// empty transcript, ready for a new Start.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.settled {
		return ErrNotSettled
	}
	c.attempt++
	c.status = StatusInactive
	c.inactiveSince = c.clock.Now()
	c.callID = ""
	c.messages = nil
	c.caption = nil
	c.speaking = false
	c.lastMessage = ""
	c.endReason = ""
	c.finished = false
	c.stopRequested = false
	c.stopIssued = false
	c.settled = false
	c.settledAt = time.Time{}
	c.redirect = ""
	c.feedbackID = ""
	c.done = make(chan struct{})
	return nil
}

// State returns a snapshot. Pending notices are included but not consumed.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// TakeState returns a snapshot and consumes pending notices, so each toast
// is delivered once.
func (c *Controller) TakeState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stateLocked()
	c.notices = nil
	return s
}

func (c *Controller) stateLocked() State {
	s := State{
		ID:              c.id,
		Type:            c.params.Type,
		InterviewID:     c.params.InterviewID,
		Status:          c.status,
		Messages:        append([]model.Message{}, c.messages...),
		Speaking:        c.speaking,
		LastMessage:     c.lastMessage,
		DisplayMessage:  c.lastMessage,
		LastInteraction: c.lastInteraction,
		EndReason:       c.endReason,
		Settled:         c.settled,
		Redirect:        c.redirect,
		FeedbackID:      c.feedbackID,
		Notices:         append([]Notice(nil), c.notices...),
		CreatedAt:       c.createdAt,
	}
	if c.caption != nil {
		cp := *c.caption
		s.Caption = &cp
	}
	if s.DisplayMessage == "" && c.status == StatusActive {
		s.DisplayMessage = inProgressMessage
	}
	return s
}

// expired reports whether the session can be dropped at now: settled or
// inactive for longer than ttl, or live with no event for longer than ttl.
func (c *Controller) expired(now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.settled:
		return now.Sub(c.settledAt) > ttl
	case c.status == StatusInactive:
		return now.Sub(c.inactiveSince) > ttl
	case c.status == StatusConnecting || c.status == StatusActive:
		return now.Sub(c.lastInteraction) > ttl
	}
	return false
}

// abandon ends a live session that is being dropped: the vendor call is
// stopped, no feedback is generated and the session settles on "/".
func (c *Controller) abandon(ctx context.Context) {
	c.mu.Lock()
	if c.finished || (c.status != StatusConnecting && c.status != StatusActive) {
		c.mu.Unlock()
		return
	}
	c.finished = true
	c.status = StatusFinished
	c.endReason = EndIdle
	c.speaking = false
	c.caption = nil
	c.stopWatchdogLocked()
	c.stopRequested = true

	var fx effects
	if c.callID != "" && !c.stopIssued {
		c.stopIssued = true
		fx.stopCallID = c.callID
	}
	c.settleLocked("/")
	c.mu.Unlock()

	c.logger.Info("abandoned call session dropped")
	c.run(ctx, fx)
}
