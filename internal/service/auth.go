// Package service provides the development server's business logic,
// delegating persistence to repository interfaces. Failures meant for the
// client are returned as *Error carrying the HTTP status and detail.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/SkillMap/internal/repository"
)

// Error is a failure with a client-facing status and detail.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

func fail(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

// ErrInvalidToken is returned by Authenticate for any unusable token.
var ErrInvalidToken = errors.New("could not validate credentials")

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	UserExists(ctx context.Context, username string) (bool, error)
	// RegisterUser creates a user; it reports false if the username is taken.
	RegisterUser(ctx context.Context, username, passwordHash string) (bool, error)
	// PasswordHash returns the stored hash or repository.ErrNotFound.
	PasswordHash(ctx context.Context, username string) (string, error)
}

// AuthService registers users and issues signed bearer tokens.
type AuthService struct {
	repo   AuthRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService constructs an AuthService. Tokens are HS256 JWTs signed
// with secret and valid for ttl.
func NewAuthService(repo AuthRepository, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{repo: repo, secret: secret, ttl: ttl, now: time.Now}
}

// Signup registers username with password.
func (s *AuthService) Signup(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	switch {
	case len(username) < 3:
		return fail(http.StatusBadRequest, "Username must be at least 3 characters long")
	case len(username) > 50:
		return fail(http.StatusBadRequest, "Username must be less than 50 characters")
	case len(password) < 6:
		return fail(http.StatusBadRequest, "Password must be at least 6 characters long")
	}

	exists, err := s.repo.UserExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists {
		return fail(http.StatusBadRequest, "Username already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// A concurrent signup can still win between the check and the insert.
	created, err := s.repo.RegisterUser(ctx, username, string(hash))
	if err != nil {
		return err
	}
	if !created {
		return fail(http.StatusBadRequest, "Username already registered")
	}
	return nil
}

// Login checks the credentials and returns a token and its lifetime.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Duration, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", 0, fail(http.StatusBadRequest, "Username is required")
	}
	if password == "" {
		return "", 0, fail(http.StatusBadRequest, "Password is required")
	}

	hash, err := s.repo.PasswordHash(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", 0, fail(http.StatusUnauthorized, "Incorrect username or password")
	}
	if err != nil {
		return "", 0, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", 0, fail(http.StatusUnauthorized, "Incorrect username or password")
	}

	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return token, s.ttl, nil
}

// Authenticate returns the username a valid token was issued to.
func (s *AuthService) Authenticate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
