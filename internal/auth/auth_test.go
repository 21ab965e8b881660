package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

type memUsers struct{ byID map[string]*store.User }

func (m *memUsers) CreateUser(_ context.Context, id, username, hash string) (*store.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) {
			return nil, store.ErrUsernameTaken
		}
	}
	u := &store.User{ID: id, Username: username, PasswordHash: hash}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) FindUserByUsername(_ context.Context, username string) (*store.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUsers) FindUserByID(_ context.Context, id string) (*store.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func newTestService() (*Service, *memUsers) {
	users := &memUsers{byID: map[string]*store.User{}}
	return NewService(users, "test-secret", time.Hour), users
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	u, err := svc.Signup(ctx, "  alice ", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "alice" || u.PasswordHash == "password123" || len(u.ID) != 22 {
		t.Errorf("unexpected user %+v", u)
	}
	if _, err := svc.Signup(ctx, "alice", "password123"); !errors.Is(err, store.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "password123"); err != nil {
		t.Errorf("login failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct{ name, user, pass string }{
		{"short name", "ab", "password123"},
		{"bad chars", "al ice", "password123"},
		{"short password", "alice", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Signup(context.Background(), tt.user, tt.pass); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u, err := svc.Signup(ctx, "bob_1", "password123")
	if err != nil {
		t.Fatal(err)
	}

	tok, exp, err := svc.Sign(u.ID, u.Username)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry too soon: %v", exp)
	}
	c, err := svc.Verify(ctx, tok)
	if err != nil || c.ID != u.ID || c.Username != "bob_1" {
		t.Fatalf("verify: %+v %v", c, err)
	}

	other := NewService(&memUsers{byID: map[string]*store.User{}}, "other-secret", time.Hour)
	if _, err := other.Verify(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token verified with the wrong secret: %v", err)
	}

	ghost, _, _ := svc.Sign("ghost", "ghost")
	if _, err := svc.Verify(ctx, ghost); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token for a missing user verified: %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=q", nil)
	if got := TokenFromRequest(r, "duel_token"); got != "q" {
		t.Errorf("query token: %q", got)
	}
	r.Header.Set("Authorization", "Bearer h")
	if got := TokenFromRequest(r, "duel_token"); got != "h" {
		t.Errorf("bearer token: %q", got)
	}
	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Cookie", "duel_token=c")
	if got := TokenFromRequest(r, "duel_token"); got != "c" {
		t.Errorf("cookie token: %q", got)
	}
}
