// apps/go-server/internal/auth/auth.go
//
// Optional accounts for the duel server.
// Responsibilities:
//   - Signup validation and bcrypt password hashing.
//   - HS256 JWT signing/parsing for session tokens.
//   - Token extraction from bearer header, auth cookie or ?token= (the
//     browser WebSocket API cannot set headers).
//
// Playing never requires an account; a valid token only names the player
// and credits their stats.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Users is the account storage used by Service.
type Users interface {
	CreateUser(ctx context.Context, id, username, passwordHash string) (*store.User, error)
	FindUserByUsername(ctx context.Context, username string) (*store.User, error)
	FindUserByID(ctx context.Context, id string) (*store.User, error)
}

// Claims is what a session token carries.
type Claims struct {
	ID       string
	Username string
}

// Service signs users up, logs them in and verifies tokens.
type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
}

// NewService builds a Service; ttl is the token lifetime.
func NewService(users Users, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: []byte(secret), ttl: ttl}
}

// Signup validates input, hashes the password and creates the user.
func (s *Service) Signup(ctx context.Context, username, password string) (*store.User, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.CreateUser(ctx, genID(), username, string(h))
}

// Login checks credentials.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, error) {
	u, err := s.users.FindUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Sign creates an HS256 token for the user.
func (s *Service) Sign(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Verify parses a token and checks that its user still exists.
func (s *Service) Verify(ctx context.Context, token string) (Claims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return Claims{}, ErrInvalidToken
	}
	if _, err := s.users.FindUserByID(ctx, id); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Claims{ID: id, Username: username}, nil
}

// TokenFromRequest extracts a token from, in order, the Authorization
// header, the auth cookie and the token query parameter.
func TokenFromRequest(r *http.Request, cookieName string) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// normalizeUsername trims whitespace.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8–100 chars")
	}
	return nil
}

// genID creates a 22‑char URL‑safe, crypto‑random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
