// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens storage, builds the collaborators
// (LLM, voice vendor, archive, mail), the services on top of them and the
// handlers on top of those, then mounts everything in setupRoutes.
//
// DEPENDENCY FLOW:
//
//	config.Config → repository.Store (sqlite | mongo)
//	             → AuthService, InterviewService, FeedbackService
//	             → call.Manager (voice client + FeedbackService)
//	             → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/interview-me/internal/archive"
	s3archive "github.com/sakif/interview-me/internal/archive/s3"
	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/call"
	"github.com/sakif/interview-me/internal/config"
	"github.com/sakif/interview-me/internal/handler"
	"github.com/sakif/interview-me/internal/llm"
	"github.com/sakif/interview-me/internal/llm/gemini"
	"github.com/sakif/interview-me/internal/mail"
	"github.com/sakif/interview-me/internal/middleware"
	"github.com/sakif/interview-me/internal/repository"
	mongoRepo "github.com/sakif/interview-me/internal/repository/mongo"
	sqliteRepo "github.com/sakif/interview-me/internal/repository/sqlite"
	"github.com/sakif/interview-me/internal/service"
	"github.com/sakif/interview-me/internal/voice"
)

// voiceSecretHeader carries the shared secret on vendor webhooks.
const voiceSecretHeader = "X-Voice-Secret"

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and the LLM client. Start closes them after the
// HTTP server has drained; Close does the same for servers never started.
type Server struct {
	router  *chi.Mux
	handler http.Handler
	config  *config.Config
	logger  *slog.Logger

	store    repository.Store
	manager  *call.Manager
	closers  []func() error
	sessions *auth.SessionService

	authHandler      *handler.AuthHandler
	interviewHandler *handler.InterviewHandler
	feedbackHandler  *handler.FeedbackHandler
	callHandler      *handler.CallHandler
	limiter          *middleware.RateLimiter
}

// New wires every dependency from cfg. Optional collaborators that are not
// configured degrade instead of failing: generation answers 503 without a
// Gemini key, and mail and archive fall back to no-ops.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		limiter: middleware.NewRateLimiter(nil),
	}

	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	s.setupRoutes()
	s.handler = otelhttp.NewHandler(s.router, "http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s, nil
}

func (s *Server) build(ctx context.Context) error {
	cfg := s.config

	// === STORAGE ===
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	s.store = store
	s.closers = append(s.closers, store.Close)

	// === COLLABORATORS ===
	var generator llm.Generator = llm.Unavailable{}
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, s.logger)
	switch {
	case err == nil:
		generator = client
		s.closers = append(s.closers, client.Close)
	case errors.Is(err, llm.ErrNotConfigured):
		s.logger.Warn("GEMINI_API_KEY not set; interview and feedback generation are disabled")
	default:
		return err
	}

	archiveStore, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	notifier := mail.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName, cfg.PublicURL, s.logger)

	assistant, err := voice.LoadAssistant(cfg.InterviewerConfig)
	if err != nil {
		return fmt.Errorf("loading interviewer assistant: %w", err)
	}
	voiceClient := voice.NewClient(cfg.VoiceAPIURL, cfg.VoiceAPIKey, s.logger)
	if cfg.VoiceAPIKey == "" {
		s.logger.Warn("VOICE_API_KEY not set; calls cannot be started")
	}
	if cfg.VoiceWebhookSecret == "" {
		s.logger.Warn("VOICE_WEBHOOK_SECRET not set; vendor webhooks will be rejected")
	}

	// === SERVICES ===
	sessions, err := auth.NewSessionService(cfg.SessionSecret,
		auth.WithTTL(cfg.SessionTTL),
		auth.WithSecureCookies(cfg.CookieSecure),
	)
	if err != nil {
		return err
	}
	s.sessions = sessions

	authService := service.NewAuthService(store.Users(), sessions, auth.NewPasswordService(), s.logger)
	interviewService := service.NewInterviewService(store.Interviews(), store.Feedback(), generator, s.logger)
	feedbackService := service.NewFeedbackService(
		store.Interviews(), store.Feedback(), store.Users(),
		generator, archiveStore, notifier, s.logger,
	)

	s.manager = call.NewManager(call.ManagerConfig{
		WorkflowID:      cfg.VoiceWorkflowID,
		Assistant:       assistant,
		WebhookBaseURL:  strings.TrimRight(cfg.PublicURL, "/") + "/api/calls",
		IdleTimeout:     cfg.CallIdleTimeout,
		FeedbackTimeout: cfg.CallFeedbackTimeout,
		SessionTTL:      cfg.CallSessionTTL,
	}, voiceClient, feedbackService, nil, s.logger)

	// === HANDLERS ===
	var google handler.GoogleAuth
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL())
	}
	s.authHandler = handler.NewAuthHandler(authService, sessions, google, s.logger)
	s.interviewHandler = handler.NewInterviewHandler(interviewService, feedbackService, s.logger)
	s.feedbackHandler = handler.NewFeedbackHandler(feedbackService, s.logger)
	s.callHandler = handler.NewCallHandler(s.manager, authService, interviewService, s.logger)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case "mongo":
		db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func openArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	switch cfg.ArchiveDriver {
	case "local":
		return archive.NewLocal(cfg.ArchiveDir), nil
	case "s3":
		store, err := s3archive.New(ctx, cfg.AWSRegion, cfg.ArchiveS3Bucket, cfg.ArchiveS3Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return archive.Discard{}, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                          → liveness
//	POST /api/auth/sign-up | sign-in       → accounts (rate limited)
//	POST /api/auth/sign-out
//	GET  /auth/google/login | callback     → only when Google is configured
//	POST /api/calls/{id}/events            → vendor webhook (secret header)
//	POST /api/voice/generate               → vendor workflow tool (secret header)
//	everything else under /api             → requires the session cookie
func (s *Server) setupRoutes() {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	rule := middleware.RateLimitRule{Rate: s.config.RateLimitRPS, Burst: s.config.RateLimitBurst}
	limit := func(group string) func(http.Handler) http.Handler {
		return middleware.RateLimit(s.limiter, group, rule)
	}

	s.router.Get("/healthz", handler.HandleHealth)

	if s.authHandler.GoogleEnabled() {
		s.router.With(limit("auth")).Get("/auth/google/login", s.authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", s.authHandler.HandleGoogleCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		// === Public ===
		r.Group(func(r chi.Router) {
			r.Use(limit("auth"))
			r.Post("/auth/sign-up", s.authHandler.HandleSignUp)
			r.Post("/auth/sign-in", s.authHandler.HandleSignIn)
		})
		r.With(auth.OptionalAuth(s.sessions)).Post("/auth/sign-out", s.authHandler.HandleSignOut)

		// === Voice vendor ===
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSecret(voiceSecretHeader, s.config.VoiceWebhookSecret))
			r.Post("/calls/{id}/events", s.callHandler.HandleEvents)
			r.With(limit("generate")).Post("/voice/generate", s.interviewHandler.HandleVoiceGenerate)
		})

		// === Signed in ===
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.sessions))

			r.Get("/me", s.authHandler.HandleMe)
			r.Get("/dashboard", s.interviewHandler.HandleDashboard)

			r.Get("/interviews", s.interviewHandler.HandleList)
			r.Get("/interviews/latest", s.interviewHandler.HandleLatest)
			r.Get("/interviews/{id}", s.interviewHandler.HandleGetByID)
			r.Get("/interviews/{id}/feedback", s.interviewHandler.HandleFeedback)
			r.With(limit("generate")).Post("/interviews/generate", s.interviewHandler.HandleGenerate)
			r.With(limit("generate")).Post("/feedback", s.feedbackHandler.HandleCreate)

			r.With(limit("calls")).Post("/calls", s.callHandler.HandleCreate)
			r.Get("/calls/{id}", s.callHandler.HandleGet)
			r.With(limit("calls")).Post("/calls/{id}/start", s.callHandler.HandleStart)
			r.Post("/calls/{id}/disconnect", s.callHandler.HandleDisconnect)
			r.Post("/calls/{id}/reset", s.callHandler.HandleReset)
		})
	})
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases storage and clients. Safe to call more than once.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("error closing resource", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}

// Start runs the HTTP server and the call-session sweeper until SIGINT or
// SIGTERM, then shuts down gracefully:
//  1. Stop accepting connections, give in-flight requests 30 seconds
//  2. Stop the sweeper
//  3. Close storage and clients
func (s *Server) Start() error {
	defer s.Close()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go s.manager.Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully", slog.Int("openCallSessions", s.manager.Len()))
	}

	return nil
}
