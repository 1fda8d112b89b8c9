package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/interview-me/internal/call"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/voice"
)

// Script is a recorded session: who started it, how the vendor and the
// feedback backend behaved, and the steps that happened in order.
type Script struct {
	Session struct {
		Type        call.SessionType `yaml:"type"`
		UserID      string           `yaml:"userId"`
		UserName    string           `yaml:"userName"`
		InterviewID string           `yaml:"interviewId"`
		Questions   []string         `yaml:"questions"`
	} `yaml:"session"`

	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	StartError    string        `yaml:"startError"`
	FeedbackError string        `yaml:"feedbackError"`

	Steps []Step `yaml:"steps"`
}

// Step is exactly one of: a vendor event, a user action (start,
// disconnect, reset) or a clock advance.
type Step struct {
	Event   yaml.Node     `yaml:"event"`
	Action  string        `yaml:"action"`
	Advance time.Duration `yaml:"advance"`
}

// Report is what a replay prints.
type Report struct {
	State        call.State        `json:"state"`
	Starts       int               `json:"starts"`
	Stops        []string          `json:"stops"`
	FeedbackRuns [][]model.Message `json:"feedbackRuns"`
	StepErrors   map[int]string    `json:"stepErrors,omitempty"`
}

// ParseScript reads a YAML (or JSON) script and fills in defaults.
func ParseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("callreplay: parsing script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("callreplay: script has no steps")
	}
	if s.Session.UserID == "" {
		s.Session.UserID = "replay-user"
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 30 * time.Second
	}
	return &s, nil
}

// Replay runs the script against a controller wired to recording fakes and
// a manual clock, then waits up to settleWait for feedback to settle.
func Replay(ctx context.Context, s *Script, settleWait time.Duration, logger *slog.Logger) (*Report, error) {
	rec := &recorder{startErr: s.StartError, feedbackErr: s.FeedbackError}
	clock := newManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))

	params := call.Params{
		Type:        s.Session.Type,
		UserID:      s.Session.UserID,
		UserName:    s.Session.UserName,
		InterviewID: s.Session.InterviewID,
		Questions:   s.Session.Questions,
	}
	cfg := call.Config{
		WorkflowID:      "replay-workflow",
		Assistant:       &voice.Assistant{Name: "Replay Interviewer"},
		ServerURL:       "http://replay.invalid/events",
		IdleTimeout:     s.IdleTimeout,
		FeedbackTimeout: settleWait,
	}
	ctrl, err := call.NewController("replay", params, cfg, rec, rec, clock, logger)
	if err != nil {
		return nil, err
	}

	report := &Report{StepErrors: map[int]string{}}
	for i, step := range s.Steps {
		if err := runStep(ctx, ctrl, clock, step); err != nil {
			report.StepErrors[i] = err.Error()
		}
	}

	if st := ctrl.State(); st.Status == call.StatusGeneratingFeedback && !st.Settled {
		select {
		case <-ctrl.Done():
		case <-time.After(settleWait):
			logger.Warn("feedback did not settle in time", slog.Duration("wait", settleWait))
		}
	}

	report.State = ctrl.TakeState()
	report.Starts, report.Stops, report.FeedbackRuns = rec.snapshot()
	return report, nil
}

func runStep(ctx context.Context, ctrl *call.Controller, clock *manualClock, step Step) error {
	switch {
	case !step.Event.IsZero():
		var raw any
		if err := step.Event.Decode(&raw); err != nil {
			return fmt.Errorf("decoding event: %w", err)
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		events, err := call.DecodeEvents(data)
		if err != nil {
			return err
		}
		for _, ev := range events {
			ctrl.HandleEvent(ctx, ev)
		}
		return nil

	case step.Advance > 0:
		clock.Advance(step.Advance)
		return nil
	}

	switch step.Action {
	case "start":
		return ctrl.Start(ctx)
	case "disconnect":
		return ctrl.Disconnect(ctx)
	case "reset":
		return ctrl.Reset()
	}
	return fmt.Errorf("unknown step action %q", step.Action)
}

// recorder stands in for the voice vendor and the feedback service.
type recorder struct {
	startErr    string
	feedbackErr string

	mu        sync.Mutex
	starts    int
	stops     []string
	feedbacks [][]model.Message
}

func (r *recorder) Start(context.Context, voice.StartRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.startErr != "" {
		return "", errors.New(r.startErr)
	}
	return fmt.Sprintf("replay-call-%d", r.starts), nil
}

func (r *recorder) Stop(_ context.Context, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, callID)
	return nil
}

func (r *recorder) CreateFeedback(_ context.Context, _, _ string, transcript []model.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedbacks = append(r.feedbacks, transcript)
	if r.feedbackErr != "" {
		return "", errors.New(r.feedbackErr)
	}
	return fmt.Sprintf("replay-feedback-%d", len(r.feedbacks)), nil
}

func (r *recorder) snapshot() (int, []string, [][]model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stops := append([]string{}, r.stops...)
	runs := append([][]model.Message{}, r.feedbacks...)
	return r.starts, stops, runs
}

// manualClock only moves when a script step advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) call.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order,
// outside the clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []*manualTimer
	for _, t := range c.timers {
		t.mu.Lock()
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
		t.mu.Unlock()
	}
	c.timers = pending
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}
