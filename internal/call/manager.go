package call

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/voice"
)

// ManagerConfig holds what every session created by a Manager shares.
type ManagerConfig struct {
	WorkflowID string
	Assistant  *voice.Assistant
	// WebhookBaseURL is the public prefix of the events route; the session
	// id and "/events" are appended to it.
	WebhookBaseURL  string
	IdleTimeout     time.Duration
	FeedbackTimeout time.Duration
	SessionTTL      time.Duration
}

// Manager keeps the live sessions of the process, keyed by session id.
type Manager struct {
	cfg      ManagerConfig
	voice    Voice
	feedback FeedbackCreator
	clock    Clock
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(cfg ManagerConfig, v Voice, fc FeedbackCreator, clock Clock, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = SystemClock
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	return &Manager{
		cfg:      cfg,
		voice:    v,
		feedback: fc,
		clock:    clock,
		logger:   logger,
		sessions: make(map[string]*Controller),
	}
}

// Create registers a new INACTIVE session.
func (m *Manager) Create(params Params) (*Controller, error) {
	id := uuid.NewString()
	cfg := Config{
		WorkflowID:      m.cfg.WorkflowID,
		Assistant:       m.cfg.Assistant,
		ServerURL:       strings.TrimRight(m.cfg.WebhookBaseURL, "/") + "/" + id + "/events",
		IdleTimeout:     m.cfg.IdleTimeout,
		FeedbackTimeout: m.cfg.FeedbackTimeout,
	}

	c, err := NewController(id, params, cfg, m.voice, m.feedback, m.clock, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	m.logger.Debug("call session created", slog.String("session", id), slog.String("type", string(params.Type)))
	return c, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperror.NotFound("call session", id)
	}
	return c, nil
}

// Remove drops a session. Unknown ids are ignored.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions that settled, sat inactive, or saw no vendor event
// for more than the session TTL before now. Live sessions among them are
// abandoned, which stops their vendor call. It returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var dropped []*Controller
	for id, c := range m.sessions {
		if c.expired(now, m.cfg.SessionTTL) {
			delete(m.sessions, id)
			dropped = append(dropped, c)
		}
	}
	m.mu.Unlock()

	for _, c := range dropped {
		c.abandon(context.Background())
	}
	return len(dropped)
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.SessionTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.clock.Now()); n > 0 {
				m.logger.Info("expired call sessions removed", slog.Int("count", n))
			}
		}
	}
}
