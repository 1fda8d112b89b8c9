package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/handler"
	"github.com/sakif/interview-me/internal/model"
)

func decodeAction(t *testing.T, rr *httptest.ResponseRecorder) handler.ActionResponse {
	t.Helper()
	var res handler.ActionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_SignUp(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		a := newFakeAuth()
		h := handler.NewAuthHandler(a, newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up",
			strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"secret1"}`))
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		res := decodeAction(t, rr)
		assert.True(t, res.Success)
		assert.Equal(t, "Account created successfully. Please sign in", res.Message)
		assert.Equal(t, "ada@example.com", a.lastSignUp.Email)
	})

	t.Run("email in use", func(t *testing.T) {
		a := newFakeAuth()
		a.signUpErr = apperror.EmailInUse()
		h := handler.NewAuthHandler(a, newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up",
			strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"secret1"}`))
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		res := decodeAction(t, rr)
		assert.False(t, res.Success)
		assert.Equal(t, "The Email is already in use", res.Message)
		assert.Equal(t, "email", res.Field)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		a := newFakeAuth()
		a.signUpErr = errors.New("disk on fire")
		h := handler.NewAuthHandler(a, newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up",
			strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"secret1"}`))
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to create an account", decodeAction(t, rr).Message)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h := handler.NewAuthHandler(newFakeAuth(), newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-up", strings.NewReader(`{"name":`))
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.False(t, decodeAction(t, rr).Success)
	})
}

func TestAuthHandler_SignIn(t *testing.T) {
	ada := &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}

	t.Run("sets session cookie", func(t *testing.T) {
		h := handler.NewAuthHandler(newFakeAuth(ada), newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in",
			strings.NewReader(`{"email":"ada@example.com","password":"secret1"}`))
		rr := httptest.NewRecorder()
		h.HandleSignIn(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		cookie := sessionCookie(rr)
		require.NotNil(t, cookie)
		assert.Equal(t, "token-u1", cookie.Value)
		assert.True(t, cookie.HttpOnly)

		var res struct {
			Success bool        `json:"success"`
			User    *model.User `json:"user"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.True(t, res.Success)
		assert.Equal(t, "u1", res.User.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		h := handler.NewAuthHandler(newFakeAuth(), newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in",
			strings.NewReader(`{"email":"nobody@example.com","password":"secret1"}`))
		rr := httptest.NewRecorder()
		h.HandleSignIn(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "User does not exist. Create an account now", decodeAction(t, rr).Message)
		assert.Nil(t, sessionCookie(rr))
	})

	t.Run("wrong password", func(t *testing.T) {
		a := newFakeAuth(ada)
		a.signInErr = apperror.InvalidCredentials()
		h := handler.NewAuthHandler(a, newTestSessions(t), nil, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in",
			strings.NewReader(`{"email":"ada@example.com","password":"nope123"}`))
		rr := httptest.NewRecorder()
		h.HandleSignIn(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid email or password", decodeAction(t, rr).Message)
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	h := handler.NewAuthHandler(newFakeAuth(), newTestSessions(t), nil, testLogger())

	rr := httptest.NewRecorder()
	h.HandleSignOut(rr, httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestAuthHandler_SignOutLogsSignedInUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := handler.NewAuthHandler(newFakeAuth(), newTestSessions(t), nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()
	h.HandleSignOut(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, buf.String(), `"userID":"u1"`)
}

func TestAuthHandler_Me(t *testing.T) {
	ada := &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash"}
	h := handler.NewAuthHandler(newFakeAuth(ada), newTestSessions(t), nil, testLogger())

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(auth.ContextWithUserID(req.Context(), "u1"))
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"name":"Ada"`)
		assert.NotContains(t, rr.Body.String(), "secret-hash")
	})

	t.Run("anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	google := &fakeGoogle{profile: &auth.GoogleProfile{Sub: "g1", Email: "ada@example.com", EmailVerified: true}}
	a := newFakeAuth()
	h := handler.NewAuthHandler(a, newTestSessions(t), google, testLogger())
	require.True(t, h.GoogleEnabled())

	login := httptest.NewRecorder()
	h.HandleGoogleLogin(login, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, login.Code)

	var state *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, login.Header().Get("Location"), "state="+state.Value)

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=forged", nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+state.Value, nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		require.NotNil(t, sessionCookie(rr))
		assert.Equal(t, "g1", a.lastProfile.Sub)
	})

	t.Run("unverified email redirects to sign-in", func(t *testing.T) {
		a.googleErr = apperror.Forbidden("Google account email is not verified")
		defer func() { a.googleErr = nil }()

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+state.Value, nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/sign-in?auth=failed", rr.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rr))
	})
}
