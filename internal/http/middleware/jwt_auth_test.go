package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vendazap/platform/internal/auth"
)

type stubUsers struct {
	users map[string]*auth.User
}

func (s *stubUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.users[user.Email] = user
	return user, nil
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func authFixture(t *testing.T) (*auth.TokenManager, *stubUsers, http.Handler) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	users := &stubUsers{users: make(map[string]*auth.User)}
	handler := Authenticator(tokens, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return tokens, users, handler
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	_, _, handler := authFixture(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticatorRejectsMalformedHeader(t *testing.T) {
	_, _, handler := authFixture(t)

	for _, header := range []string{"Token abc", "Bearer", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthenticatorRejectsBadToken(t *testing.T) {
	_, _, handler := authFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticatorRejectsUnknownSubject(t *testing.T) {
	tokens, _, handler := authFixture(t)

	signed, err := tokens.Issue("ghost@vendazap.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticatorForbidsInactiveUser(t *testing.T) {
	tokens, users, handler := authFixture(t)
	users.users["maria@vendazap.test"] = &auth.User{Email: "maria@vendazap.test", IsActive: false}

	signed, err := tokens.Issue("maria@vendazap.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthenticatorAttachesUser(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	users := &stubUsers{users: map[string]*auth.User{
		"maria@vendazap.test": {Email: "maria@vendazap.test", IsActive: true},
	}}

	var seen *auth.User
	handler := Authenticator(tokens, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	signed, err := tokens.Issue("maria@vendazap.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if seen == nil || seen.Email != "maria@vendazap.test" {
		t.Fatalf("user not attached to the context: %+v", seen)
	}
}
