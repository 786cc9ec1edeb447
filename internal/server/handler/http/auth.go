// Package http provides the development server's HTTP handlers for
// accounts, résumé analysis and goal progress.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/atinyakov/SkillMap/internal/service"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Signup registers a new user.
	Signup(ctx context.Context, username, password string) error
	// Login returns a bearer token and its lifetime.
	Login(ctx context.Context, username, password string) (string, time.Duration, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// Signup handles form-encoded registration requests with "username" and
// "password" fields.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	if err := h.AuthService.Signup(r.Context(), r.PostFormValue("username"), r.PostFormValue("password")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
}

// Token handles form-encoded login requests and responds with a bearer
// token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	token, ttl, err := h.AuthService.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		var se *service.Error
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int64(ttl / time.Second),
	})
}
