package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// newFakeGoogle serves the token and userinfo endpoints.
func newFakeGoogle(t *testing.T, userinfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userinfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/auth/google/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleAuthURL_CarriesState(t *testing.T) {
	p := NewGoogleProvider("client-id", "secret", "http://localhost/cb")

	u, err := url.Parse(p.AuthURL("state-xyz"))
	if err != nil {
		t.Fatalf("AuthURL() is not a URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" {
		t.Errorf("state = %q, want state-xyz", q.Get("state"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Errorf("scope = %q, want email", q.Get("scope"))
	}
}

func TestGoogleExchange(t *testing.T) {
	srv := newFakeGoogle(t, `{"sub":"g-1","email":"ada@example.com","name":"Ada","picture":"https://pic"}`)
	p := newTestGoogleProvider(srv)

	profile, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if profile.Email != "ada@example.com" || profile.Name != "Ada" || profile.Picture != "https://pic" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestGoogleExchange_BadCode(t *testing.T) {
	srv := newFakeGoogle(t, `{}`)
	p := newTestGoogleProvider(srv)

	if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("Exchange() should fail for a rejected code")
	}
}

func TestGoogleExchange_IncompleteProfile(t *testing.T) {
	srv := newFakeGoogle(t, `{"sub":"g-1"}`)
	p := newTestGoogleProvider(srv)

	if _, err := p.Exchange(context.Background(), "good-code"); err == nil {
		t.Fatal("Exchange() should reject a profile without email")
	}
}
