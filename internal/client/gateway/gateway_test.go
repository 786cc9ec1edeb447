package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/config"
	"github.com/atinyakov/SkillMap/internal/models"
)

// roundTripperFunc lets a test stand in for the network.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type fakeCreds struct {
	mu          sync.Mutex
	token       string
	invalidated []string
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Invalidate(token, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, token)
}

func newTestGateway(fn roundTripperFunc, creds *fakeCreds) *Gateway {
	opts := config.Default()
	opts.APIURL = "http://backend.test/"
	g := New(opts, zap.NewNop())
	g.HTTP = &http.Client{Transport: fn}
	if creds != nil {
		g.Credentials = creds
	}
	return g
}

func respond(status int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func TestHeaders(t *testing.T) {
	creds := &fakeCreds{token: "tok"}
	var got *http.Request
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		got = req
		return respond(http.StatusOK, `[]`)
	}, creds)

	_, err := g.ListGoals(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "http://backend.test/progress/all/", got.URL.String())
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Len(t, got.Header.Get("X-Request-ID"), 36)
}

func TestNoTokenNoAuthorization(t *testing.T) {
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.Header.Get("Authorization"))
		return respond(http.StatusOK, `[]`)
	}, &fakeCreds{})

	_, err := g.ListGoals(context.Background())
	require.NoError(t, err)
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"forbidden", 403, `{"detail":"nope"}`, apperr.ErrPermission, "nope"},
		{"not found", 404, `{"detail":"Progress not found"}`, apperr.ErrNotFound, "Progress not found"},
		{"server", 500, `{"detail":"Internal Server Error"}`, apperr.ErrServer, "Internal Server Error"},
		{"bad gateway text", 502, "upstream down\n", apperr.ErrServer, "upstream down"},
		{"bad request", 400, `{"detail":"Only PDF files are supported"}`, apperr.ErrValidation, "Only PDF files are supported"},
		{"conflict", 409, `{"detail":{"msg":"exists"}}`, apperr.ErrValidation, "exists"},
		{"unprocessable", 422, `{"detail":[{"loc":["body","goal"],"msg":"field required"},{"msg":"too short"}]}`, apperr.ErrValidation, "field required; too short"},
		{"empty body", 413, ``, apperr.ErrValidation, "Request Entity Too Large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGateway(func(*http.Request) (*http.Response, error) {
				return respond(tc.status, tc.body)
			}, &fakeCreds{token: "tok"})

			_, err := g.RenameGoal(context.Background(), "7", "New")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.msg, apperr.Message(err))

			var e *apperr.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.status, e.Status)
			assert.Equal(t, "goals.rename", e.Op)
		})
	}
}

func TestUnauthorizedWithTokenInvalidates(t *testing.T) {
	creds := &fakeCreds{token: "tok"}
	g := newTestGateway(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	}, creds)

	_, err := g.ListGoals(context.Background())
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, []string{"tok"}, creds.invalidated)
}

func TestUnauthorizedOnLoginDoesNotInvalidate(t *testing.T) {
	creds := &fakeCreds{token: "old"}
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.Header.Get("Authorization"), "login never carries a token")
		return respond(http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)
	}, creds)

	_, err := g.Login(context.Background(), "alice", "bad")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "Incorrect username or password", apperr.Message(err))
	assert.Empty(t, creds.invalidated)
}

func TestSignupBadRequestIsAuth(t *testing.T) {
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "carol", req.PostForm.Get("username"))
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		return respond(http.StatusBadRequest, `{"detail":"Username already registered"}`)
	}, nil)

	err := g.Signup(context.Background(), "carol", "secret1")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "Username already registered", apperr.Message(err))
}

func TestLogin(t *testing.T) {
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/token", req.URL.Path)
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "alice", req.PostForm.Get("username"))
		assert.Equal(t, "secret", req.PostForm.Get("password"))
		return respond(http.StatusOK, `{"access_token":"abc","token_type":"bearer","expires_in":1800}`)
	}, nil)

	grant, err := g.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.Grant{Token: "abc", ExpiresIn: 30 * time.Minute}, grant)
}

func TestLogin_MissingToken(t *testing.T) {
	g := newTestGateway(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"token_type":"bearer"}`)
	}, nil)

	_, err := g.Login(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, apperr.ErrServer)
}

func TestNetworkError(t *testing.T) {
	g := newTestGateway(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}, &fakeCreds{token: "tok"})

	_, err := g.ListGoals(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestTimeout(t *testing.T) {
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}, &fakeCreds{token: "tok"})
	g.Timeout = 20 * time.Millisecond

	_, err := g.ListGoals(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestUploadUsesUploadTimeout(t *testing.T) {
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		deadline, ok := req.Context().Deadline()
		require.True(t, ok)
		assert.Greater(t, time.Until(deadline), time.Minute)
		return respond(http.StatusOK, `{"extracted_skills":[],"roadmap":"step"}`)
	}, &fakeCreds{token: "tok"})
	g.Timeout = time.Second
	g.UploadTimeout = 5 * time.Minute

	_, err := g.UploadResume(context.Background(), "Analyst", models.Resume{Filename: "cv.pdf", Content: []byte("%PDF-1.4")})
	require.NoError(t, err)
}

func TestInvalidJSON(t *testing.T) {
	g := newTestGateway(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `not-json`)
	}, &fakeCreds{token: "tok"})

	_, err := g.ListGoals(context.Background())
	assert.ErrorIs(t, err, apperr.ErrServer)
	assert.Equal(t, "invalid response from server", apperr.Message(err))
}

func TestUploadResume_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload_resume", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Data Analyst", r.FormValue("goal"))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "cv.pdf", fh.Filename)
		assert.Equal(t, "application/pdf", fh.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4 body", string(data))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"extracted_skills": []string{"SQL", "Excel"},
			"roadmap":          "1. Learn Python\n\n- Build dashboards\r\nLearn statistics",
			"recommended_courses": []map[string]any{
				{"title": "Intro to SQL", "url": "https://example.com/sql", "description": nil},
			},
			"cv_assessment": "**Strong** analytics background",
			"cv_tips":       "Quantify impact\nKeep it short",
		})
	}))
	defer srv.Close()

	opts := config.Default()
	opts.APIURL = srv.URL
	g := New(opts, zap.NewNop())
	g.Credentials = &fakeCreds{token: "tok"}

	gen, err := g.UploadResume(context.Background(), "Data Analyst", models.Resume{
		Filename: "cv.pdf",
		Content:  []byte("%PDF-1.4 body"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"SQL", "Excel"}, gen.Skills)
	assert.Equal(t, []string{"1. Learn Python", "- Build dashboards", "Learn statistics"}, gen.Roadmap)
	assert.Equal(t, []string{"Quantify impact", "Keep it short"}, gen.Tips)
	assert.Equal(t, []models.Course{{Title: "Intro to SQL", URL: "https://example.com/sql"}}, gen.Courses)
	assert.Equal(t, "**Strong** analytics background", gen.Assessment)
}

func TestListGoals_Normalizes(t *testing.T) {
	g := newTestGateway(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `[
			{"id": 12, "goal": "Data Analyst", "skills": ["SQL"], "roadmap": ["A", "B", "C"],
			 "completed_steps": [0], "updated_at": "2026-03-01T10:20:30.123456",
			 "cv_tips": "one\ntwo", "skill_gaps": null},
			{"id": "abc", "goal": "Legacy", "skills": null, "roadmap": "- x\n- y",
			 "completed_steps": null, "updated_at": 1772360430}
		]`)
	}, &fakeCreds{token: "tok"})

	goals, err := g.ListGoals(context.Background())
	require.NoError(t, err)
	require.Len(t, goals, 2)

	assert.Equal(t, "12", goals[0].ID)
	assert.Equal(t, "Data Analyst", goals[0].Title)
	assert.Equal(t, []string{"A", "B", "C"}, goals[0].Roadmap)
	assert.Equal(t, []int{0}, goals[0].CompletedSteps)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 20, 30, 123456000, time.UTC), goals[0].UpdatedAt)
	assert.Equal(t, []string{"one", "two"}, goals[0].Tips)
	assert.Nil(t, goals[0].SkillGaps)

	assert.Equal(t, "abc", goals[1].ID)
	assert.Equal(t, []string{"- x", "- y"}, goals[1].Roadmap)
	assert.Empty(t, goals[1].CompletedSteps)
	assert.Equal(t, time.Unix(1_772_360_430, 0).UTC(), goals[1].UpdatedAt)
}

func TestGoalMutations_Wire(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]any
	}
	var calls []seen
	g := newTestGateway(func(req *http.Request) (*http.Response, error) {
		var body map[string]any
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&body)
		}
		calls = append(calls, seen{req.Method, req.URL.Path, body})
		if req.Method == http.MethodDelete {
			return respond(http.StatusNoContent, ``)
		}
		return respond(http.StatusOK, `{"id": 5, "goal": "G", "roadmap": ["a"], "completed_steps": [0]}`)
	}, &fakeCreds{token: "tok"})
	ctx := context.Background()

	saved, err := g.SaveGoal(ctx, models.NewGoal{Title: "G", Roadmap: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "5", saved.ID)

	_, err = g.RenameGoal(ctx, "5", "H")
	require.NoError(t, err)
	_, err = g.ToggleStep(ctx, "5", 0, true)
	require.NoError(t, err)
	require.NoError(t, g.DeleteGoal(ctx, "5"))

	require.Len(t, calls, 4)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/progress/", calls[0].path)
	assert.Equal(t, "G", calls[0].body["goal"])
	assert.Equal(t, []any{}, calls[0].body["skills"], "empty lists are sent as []")

	assert.Equal(t, http.MethodPatch, calls[1].method)
	assert.Equal(t, "/progress/5/", calls[1].path)
	assert.Equal(t, "H", calls[1].body["new_goal"])

	assert.Equal(t, "/progress/5/step/", calls[2].path)
	assert.Equal(t, float64(0), calls[2].body["step_idx"])
	assert.Equal(t, true, calls[2].body["done"])

	assert.Equal(t, http.MethodDelete, calls[3].method)
	assert.Equal(t, "/progress/5/", calls[3].path)
}

func TestDetailMessage(t *testing.T) {
	assert.Equal(t, "plain", detailMessage([]byte(`{"detail":"plain"}`)))
	assert.Equal(t, "", detailMessage([]byte(`{}`)))
	assert.Equal(t, "a; b", detailMessage([]byte(`{"detail":[{"msg":"a"},{"msg":"b"}]}`)))
	assert.Equal(t, "oops", detailMessage([]byte("  oops \n")))
	assert.Equal(t, 201, len([]rune(detailMessage([]byte(strings.Repeat("x", 500))))))
}

func TestFlexTime(t *testing.T) {
	var v struct {
		T flexTime `json:"t"`
	}
	for _, in := range []string{`"2026-03-01T10:20:30"`, `"2026-03-01 10:20:30.5"`, `"2026-03-01T10:20:30+00:00"`} {
		require.NoError(t, json.Unmarshal([]byte(`{"t":`+in+`}`), &v), in)
		assert.Equal(t, 2026, time.Time(v.T).Year(), in)
	}
	require.NoError(t, json.Unmarshal([]byte(`{"t":null}`), &v))
	assert.True(t, time.Time(v.T).IsZero())
	assert.Error(t, json.Unmarshal([]byte(`{"t":"yesterday"}`), &v))
}

func TestFlexTime_EpochSeconds(t *testing.T) {
	var v struct {
		T flexTime `json:"t"`
	}
	want := time.Unix(1_772_360_430, 0).UTC()
	for _, in := range []string{`1772360430`, `"1772360430"`, ` 1772360430 `} {
		require.NoError(t, json.Unmarshal([]byte(`{"t":`+in+`}`), &v), in)
		assert.True(t, want.Equal(time.Time(v.T)), "%s decoded as %v", in, time.Time(v.T))
	}
	assert.Error(t, json.Unmarshal([]byte(`{"t":true}`), &v))
}
