package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/validation"
)

// Signup registers an account. A 400 (duplicate or rejected input) is an
// auth error.
func (g *Gateway) Signup(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	return g.do(ctx, call{
		op:          "session.signup",
		method:      http.MethodPost,
		path:        "/signup",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		badRequest:  apperr.KindAuth,
	}, nil)
}

// Login exchanges credentials for a bearer token.
func (g *Gateway) Login(ctx context.Context, username, password string) (models.Grant, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var tok wireToken
	err := g.do(ctx, call{
		op:          "session.login",
		method:      http.MethodPost,
		path:        "/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		badRequest:  apperr.KindAuth,
	}, &tok)
	if err != nil {
		return models.Grant{}, err
	}
	if tok.AccessToken == "" {
		return models.Grant{}, apperr.New("session.login", apperr.KindServer, "server returned no access token")
	}
	return models.Grant{
		Token:     tok.AccessToken,
		ExpiresIn: time.Duration(tok.ExpiresIn) * time.Second,
	}, nil
}

// UploadResume sends the résumé and goal title for analysis. It uses the
// upload timeout.
func (g *Gateway) UploadResume(ctx context.Context, title string, r models.Resume) (models.Generated, error) {
	const op = "goals.create"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, r.Filename))
	hdr.Set("Content-Type", validation.PDFMIME)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return models.Generated{}, apperr.Wrap(op, apperr.KindUnknown, err)
	}
	if _, err := part.Write(r.Content); err != nil {
		return models.Generated{}, apperr.Wrap(op, apperr.KindUnknown, err)
	}
	if err := mw.WriteField("goal", title); err != nil {
		return models.Generated{}, apperr.Wrap(op, apperr.KindUnknown, err)
	}
	if err := mw.Close(); err != nil {
		return models.Generated{}, apperr.Wrap(op, apperr.KindUnknown, err)
	}

	var out wireGenerated
	err = g.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "/upload_resume",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
		upload:      true,
	}, &out)
	if err != nil {
		return models.Generated{}, err
	}
	return out.model(), nil
}

// ListGoals returns every goal of the current user, newest first.
func (g *Gateway) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var out []wireGoal
	err := g.do(ctx, call{
		op:     "goals.fetch",
		method: http.MethodGet,
		path:   "/progress/all/",
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	goals := make([]models.Goal, 0, len(out))
	for _, w := range out {
		goals = append(goals, w.model())
	}
	return goals, nil
}

// SaveGoal stores a new goal. The backend upserts by title.
func (g *Gateway) SaveGoal(ctx context.Context, in models.NewGoal) (models.Goal, error) {
	return g.sendGoal(ctx, "goals.create", http.MethodPost, "/progress/", newSaveRequest(in))
}

// DeleteGoal removes a goal.
func (g *Gateway) DeleteGoal(ctx context.Context, id string) error {
	return g.do(ctx, call{
		op:     "goals.delete",
		method: http.MethodDelete,
		path:   goalPath(id),
		auth:   true,
	}, nil)
}

// RenameGoal changes a goal's title.
func (g *Gateway) RenameGoal(ctx context.Context, id, title string) (models.Goal, error) {
	return g.sendGoal(ctx, "goals.rename", http.MethodPatch, goalPath(id), renameRequest{NewGoal: title})
}

// ToggleStep sets the completion state of one roadmap step.
func (g *Gateway) ToggleStep(ctx context.Context, id string, step int, done bool) (models.Goal, error) {
	return g.sendGoal(ctx, "goals.toggle", http.MethodPatch, goalPath(id)+"step/", stepRequest{StepIdx: step, Done: done})
}

func (g *Gateway) sendGoal(ctx context.Context, op, method, path string, body any) (models.Goal, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.Goal{}, apperr.Wrap(op, apperr.KindUnknown, err)
	}
	var out wireGoal
	err = g.do(ctx, call{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		auth:        true,
	}, &out)
	if err != nil {
		return models.Goal{}, err
	}
	return out.model(), nil
}

func goalPath(id string) string {
	return "/progress/" + url.PathEscape(id) + "/"
}
