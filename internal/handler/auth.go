package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/service"
)

const (
	signUpSucceeded  = "Account created successfully. Please sign in"
	signUpFailed     = "Failed to create an account"
	signInSucceeded  = "Signed in successfully"
	signInFailed     = "Failed to log into the account"
	signOutSucceeded = "Signed out successfully"

	oauthStateCookie = "oauth_state"
)

// Authenticator is the part of service.AuthService the handlers use.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*service.AuthResult, error)
	SignInWithGoogle(ctx context.Context, profile *auth.GoogleProfile) (*service.AuthResult, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// GoogleAuth is the OAuth provider behind the Google sign-in routes.
type GoogleAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error)
}

// AuthHandler serves sign-up, sign-in, sign-out and the current user.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp / HandleSignIn → email and password accounts
//   - HandleSignOut               → clear the session cookie
//   - HandleGoogleLogin / HandleGoogleCallback → Google OAuth (optional)
//   - HandleMe                    → the signed-in user's profile
type AuthHandler struct {
	auth     Authenticator
	sessions *auth.SessionService
	google   GoogleAuth // nil when Google sign-in is not configured
	logger   *slog.Logger
}

func NewAuthHandler(a Authenticator, sessions *auth.SessionService, google GoogleAuth, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     a,
		sessions: sessions,
		google:   google,
		logger:   logger,
	}
}

// GoogleEnabled reports whether the Google routes should be mounted.
func (h *AuthHandler) GoogleEnabled() bool { return h.google != nil }

// HandleSignUp creates an account.
//
// HTTP: POST /api/auth/sign-up
// REQUEST BODY: {"name": "Ada", "email": "ada@example.com", "password": "secret1"}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeActionError(w, err, signUpFailed)
		return
	}

	if _, err := h.auth.SignUp(r.Context(), in); err != nil {
		logIfInternal(h.logger, "error creating a user", err)
		writeActionError(w, err, signUpFailed)
		return
	}

	writeJSON(w, http.StatusCreated, ActionResponse{Success: true, Message: signUpSucceeded})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	ActionResponse
	User *model.User `json:"user"`
}

// HandleSignIn checks credentials and sets the session cookie.
//
// HTTP: POST /api/auth/sign-in
// REQUEST BODY: {"email": "ada@example.com", "password": "secret1"}
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeActionError(w, err, signInFailed)
		return
	}

	result, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		logIfInternal(h.logger, "error signing in", err)
		writeActionError(w, err, signInFailed)
		return
	}

	http.SetCookie(w, h.sessions.Cookie(result.Token))
	writeJSON(w, http.StatusOK, signInResponse{
		ActionResponse: ActionResponse{Success: true, Message: signInSucceeded},
		User:           result.User,
	})
}

// HandleSignOut deletes the session cookie. The token itself stays valid
// until it expires; without the cookie the browser no longer sends it.
// Mounted behind auth.OptionalAuth, so a still-valid session is logged.
//
// HTTP: POST /api/auth/sign-out
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("user signed out", slog.String("userID", userID))
	}
	http.SetCookie(w, h.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: signOutSucceeded})
}

// HandleGoogleLogin redirects the user to Google's consent screen.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and must come
// back unchanged on the callback.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile
//  3. Get or create the account and issue the session cookie
//  4. Redirect to the app home page
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/sign-in?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for the Google profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}
	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/sign-in?auth=failed", http.StatusSeeOther)
		return
	}

	// --- Step 3: Sign in ---
	result, err := h.auth.SignInWithGoogle(r.Context(), profile)
	if err != nil {
		logIfInternal(h.logger, "auth callback: sign-in failed", err)
		http.Redirect(w, r, "/sign-in?auth=failed", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, h.sessions.Cookie(result.Token))

	// --- Step 4: Redirect to the app ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "HandleMe: loading user", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
