// Package gateway is the client's only path to the SkillMap backend. It
// injects credentials, bounds every call with a deadline, classifies
// failures into apperr kinds and normalizes response payloads.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/config"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// Credentials supplies the bearer token and is told when the server
// rejects it.
type Credentials interface {
	Token() string
	Invalidate(token, reason string)
}

// Gateway performs backend calls. It is safe for concurrent use once
// configured.
type Gateway struct {
	// BaseURL is the backend root, without a trailing slash.
	BaseURL string
	// Timeout bounds ordinary calls.
	Timeout time.Duration
	// UploadTimeout bounds résumé upload and generation.
	UploadTimeout time.Duration
	// HTTP performs requests.
	HTTP *http.Client
	// Credentials is consulted for every authenticated call; may be nil.
	Credentials Credentials

	log *zap.Logger
}

// New returns a gateway configured from opts.
func New(opts *config.Options, log *zap.Logger) *Gateway {
	return &Gateway{
		BaseURL:       strings.TrimRight(opts.APIURL, "/"),
		Timeout:       opts.RequestTimeout,
		UploadTimeout: opts.UploadTimeout,
		HTTP:          &http.Client{},
		log:           log,
	}
}

// call describes one request.
type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	// auth attaches the bearer token when one is present.
	auth bool
	// upload selects UploadTimeout instead of Timeout.
	upload bool
	// badRequest overrides the kind reported for 400 responses.
	badRequest apperr.Kind
}

// do executes c and decodes a successful JSON body into out (if non-nil).
func (g *Gateway) do(ctx context.Context, c call, out any) error {
	timeout := g.Timeout
	if c.upload {
		timeout = g.UploadTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, c.method, g.BaseURL+c.path, c.body)
	if err != nil {
		return apperr.Wrap(c.op, apperr.KindUnknown, fmt.Errorf("build request: %w", err))
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.contentType != "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	var token string
	if c.auth && g.Credentials != nil {
		token = g.Credentials.Token()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := g.HTTP.Do(req)
	if err != nil {
		e := transportError(ctx, c.op, err)
		g.log.Warn("request failed",
			zap.String("op", c.op),
			zap.String("method", c.method),
			zap.String("path", c.path),
			zap.String("request_id", reqID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return e
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, c.op, err)
	}

	g.log.Debug("request",
		zap.String("op", c.op),
		zap.String("method", c.method),
		zap.String("path", c.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		e := g.statusError(c, token, resp.StatusCode, data)
		g.log.Warn("request rejected",
			zap.String("op", c.op),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", reqID),
			zap.String("detail", e.Message),
		)
		return e
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperr.Error{
			Op:      c.op,
			Kind:    apperr.KindServer,
			Status:  resp.StatusCode,
			Message: "invalid response from server",
			Err:     err,
		}
	}
	return nil
}

// statusError classifies a non-2xx response. A 401 on a call that carried
// a token ends the session.
func (g *Gateway) statusError(c call, token string, status int, body []byte) *apperr.Error {
	e := &apperr.Error{Op: c.op, Status: status, Message: detailMessage(body)}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = apperr.KindAuth
		if token != "" {
			g.Credentials.Invalidate(token, c.op+": 401")
			if e.Message == "" {
				e.Message = "session expired, please log in again"
			}
		}
	case status == http.StatusForbidden:
		e.Kind = apperr.KindPermission
	case status == http.StatusNotFound:
		e.Kind = apperr.KindNotFound
	case status >= http.StatusInternalServerError:
		e.Kind = apperr.KindServer
	case status == http.StatusBadRequest && c.badRequest != apperr.KindUnknown:
		e.Kind = c.badRequest
	default:
		e.Kind = apperr.KindValidation
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func transportError(ctx context.Context, op string, err error) *apperr.Error {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		return &apperr.Error{Op: op, Kind: apperr.KindTimeout, Message: "request timed out", Err: err}
	default:
		return &apperr.Error{Op: op, Kind: apperr.KindNetwork, Message: "cannot reach server", Err: err}
	}
}

// detailMessage extracts the server's "detail", which may be a string, an
// object with "msg", or a list of such objects. Non-JSON bodies are used
// verbatim, trimmed.
func detailMessage(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return truncate(strings.TrimSpace(string(body)), 200)
	}
	if len(env.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}
	var one detailItem
	if err := json.Unmarshal(env.Detail, &one); err == nil && one.Msg != "" {
		return one.Msg
	}
	var many []detailItem
	if err := json.Unmarshal(env.Detail, &many); err == nil {
		msgs := make([]string, 0, len(many))
		for _, d := range many {
			if d.Msg != "" {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return truncate(string(env.Detail), 200)
}

type detailItem struct {
	Msg string `json:"msg"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
