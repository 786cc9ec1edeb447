// Package models defines the core data structures for sessions and goals.
package models

import (
	"slices"
	"time"
)

// Session is the authentication state of one client profile.
type Session struct {
	// Token is the opaque bearer credential; empty when logged out.
	Token string `json:"token"`
	// Username is the display name associated with Token.
	Username string `json:"username"`
	// ExpiresAt is when the server said the token lapses; zero if unknown.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Active reports whether a token is present.
func (s Session) Active() bool {
	return s.Token != ""
}

// Expired reports whether the session has a known expiry before now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Course is a learning resource recommended alongside a roadmap.
type Course struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Goal is a user's career objective with its roadmap and progress.
// The client copy is a cached projection of the server's record.
type Goal struct {
	// ID is server-assigned and stable for the goal's lifetime.
	ID string
	// Title is the career objective.
	Title string
	// Skills were extracted from the résumé at creation.
	Skills []string
	// Roadmap holds the raw step strings; a step is identified by its index.
	Roadmap []string
	// CompletedSteps are indices into Roadmap marked done.
	CompletedSteps []int
	// UpdatedAt is advanced by the server on every mutation.
	UpdatedAt time.Time

	Assessment   string
	SkillGaps    []string
	LearningPath []string
	Tips         []string
	Courses      []Course
}

// IsDone reports whether step idx is in CompletedSteps.
func (g *Goal) IsDone(idx int) bool {
	return slices.Contains(g.CompletedSteps, idx)
}

// Clone returns a deep copy of g.
func (g Goal) Clone() Goal {
	g.Skills = slices.Clone(g.Skills)
	g.Roadmap = slices.Clone(g.Roadmap)
	g.CompletedSteps = slices.Clone(g.CompletedSteps)
	g.SkillGaps = slices.Clone(g.SkillGaps)
	g.LearningPath = slices.Clone(g.LearningPath)
	g.Tips = slices.Clone(g.Tips)
	g.Courses = slices.Clone(g.Courses)
	return g
}

// Generated is what the backend's résumé analysis returns, already
// normalized: Roadmap is the canonical ordered list of raw steps.
type Generated struct {
	Skills       []string
	Roadmap      []string
	Assessment   string
	SkillGaps    []string
	LearningPath []string
	Tips         []string
	Courses      []Course
}

// NewGoal is the payload of a save-goal call.
type NewGoal struct {
	Title        string
	Skills       []string
	Roadmap      []string
	Assessment   string
	SkillGaps    []string
	LearningPath []string
	Tips         []string
}

// Resume is an uploaded résumé file held in memory so a failed submission
// can be retried without re-reading it.
type Resume struct {
	Filename string
	Content  []byte
}

// Grant is a successful login response.
type Grant struct {
	// Token is the bearer credential.
	Token string
	// ExpiresIn is the server-declared lifetime; zero if not declared.
	ExpiresIn time.Duration
}

// Progress is a goal as the development server stores it.
type Progress struct {
	ID             int64
	Username       string
	Goal           string
	Skills         []string
	Roadmap        []string
	CompletedSteps []int
	CVAssessment   string
	SkillGaps      []string
	LearningPath   []string
	CVTips         []string
	UpdatedAt      time.Time
}
