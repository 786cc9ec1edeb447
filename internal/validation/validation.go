// Package validation checks user input before it reaches the network.
// Every failure is an apperr KindValidation error with a user-facing message.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/models"
)

// PDFMIME is the only résumé type the backend accepts.
const PDFMIME = "application/pdf"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials are login input.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Registration is signup input; limits mirror the backend's.
type Registration struct {
	Username string `validate:"required,min=3,max=50"`
	Password string `validate:"required,min=6"`
}

// NewGoalInput is the goal-creation form.
type NewGoalInput struct {
	Title string `validate:"required,min=3,max=200"`
}

// RenameInput is the goal-rename form.
type RenameInput struct {
	Title string `validate:"required"`
}

var messages = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s characters",
	"max":      "%s must be at most %s characters",
}

// Struct validates v and converts the first failure into a readable
// KindValidation error for op.
func Struct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(op, apperr.KindValidation, err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	format, ok := messages[fe.Tag()]
	if !ok {
		return apperr.Validation(op, fmt.Sprintf("%s is invalid", field))
	}
	if fe.Param() == "" {
		return apperr.Validation(op, fmt.Sprintf(format, field))
	}
	return apperr.Validation(op, fmt.Sprintf(format, field, fe.Param()))
}

// Login trims the username and validates credentials.
func Login(username, password string) (Credentials, error) {
	c := Credentials{Username: strings.TrimSpace(username), Password: password}
	return c, Struct("session.login", c)
}

// Signup trims the username and validates registration input.
func Signup(username, password string) (Registration, error) {
	r := Registration{Username: strings.TrimSpace(username), Password: password}
	return r, Struct("session.signup", r)
}

// GoalTitle trims and validates a new goal title.
func GoalTitle(title string) (string, error) {
	in := NewGoalInput{Title: strings.TrimSpace(title)}
	return in.Title, Struct("goals.create", in)
}

// RenameTitle trims and validates a replacement title.
func RenameTitle(title string) (string, error) {
	in := RenameInput{Title: strings.TrimSpace(title)}
	return in.Title, Struct("goals.rename", in)
}

// Resume checks that a résumé is present, non-empty, within maxBytes
// (when positive) and a PDF by name and by content. It returns the
// detected MIME type.
func Resume(r *models.Resume, maxBytes int64) (string, error) {
	const op = "goals.create"
	if r == nil || r.Filename == "" {
		return "", apperr.Validation(op, "résumé file is required")
	}
	if len(r.Content) == 0 {
		return "", apperr.Validation(op, "résumé file is empty")
	}
	if maxBytes > 0 && int64(len(r.Content)) > maxBytes {
		return "", apperr.Validation(op, fmt.Sprintf("résumé file too large, maximum size is %d MB", maxBytes>>20))
	}
	if !strings.EqualFold(filepath.Ext(r.Filename), ".pdf") {
		return "", apperr.Validation(op, "only PDF files are supported")
	}
	mt := mimetype.Detect(r.Content)
	if !mt.Is(PDFMIME) {
		return "", apperr.Validation(op, fmt.Sprintf("file content is %s, expected a PDF", mt.String()))
	}
	return PDFMIME, nil
}
