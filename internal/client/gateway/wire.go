package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/roadmap"
)

// flexID accepts a JSON number or string.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// lines accepts either a list of strings or one newline-separated string.
// A list is kept as sent, since step identity is positional; a string is
// split into its canonical steps.
type lines []string

func (l *lines) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = roadmap.Split(s)
	default:
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*l = list
	}
	return nil
}

// timeLayouts covers RFC 3339 and the zone-less ISO form the backend emits.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// flexTime parses timestamps with or without a zone; zone-less values are UTC.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = flexTime{}
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		sec, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %s", b)
		}
		*t = unixTime(sec)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = flexTime(v)
			return nil
		}
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		*t = unixTime(sec)
		return nil
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// unixTime converts fractional epoch seconds.
func unixTime(sec float64) flexTime {
	return flexTime(time.Unix(0, int64(sec*float64(time.Second))).UTC())
}

type wireCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Provider    string `json:"provider"`
}

func toCourses(in []wireCourse) []models.Course {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Course, 0, len(in))
	for _, c := range in {
		out = append(out, models.Course(c))
	}
	return out
}

// wireGoal is a progress record as the backend serializes it.
type wireGoal struct {
	ID             flexID       `json:"id"`
	Goal           string       `json:"goal"`
	Skills         []string     `json:"skills"`
	Roadmap        lines        `json:"roadmap"`
	CompletedSteps []int        `json:"completed_steps"`
	UpdatedAt      flexTime     `json:"updated_at"`
	CVAssessment   string       `json:"cv_assessment"`
	SkillGaps      lines        `json:"skill_gaps"`
	LearningPath   lines        `json:"learning_path"`
	CVTips         lines        `json:"cv_tips"`
	Courses        []wireCourse `json:"recommended_courses"`
}

func (w wireGoal) model() models.Goal {
	return models.Goal{
		ID:             string(w.ID),
		Title:          w.Goal,
		Skills:         w.Skills,
		Roadmap:        w.Roadmap,
		CompletedSteps: w.CompletedSteps,
		UpdatedAt:      time.Time(w.UpdatedAt),
		Assessment:     w.CVAssessment,
		SkillGaps:      w.SkillGaps,
		LearningPath:   w.LearningPath,
		Tips:           w.CVTips,
		Courses:        toCourses(w.Courses),
	}
}

// wireGenerated is the upload_resume response.
type wireGenerated struct {
	ExtractedSkills []string     `json:"extracted_skills"`
	Roadmap         lines        `json:"roadmap"`
	Courses         []wireCourse `json:"recommended_courses"`
	CVAssessment    string       `json:"cv_assessment"`
	SkillGaps       lines        `json:"skill_gaps"`
	LearningPath    lines        `json:"learning_path"`
	CVTips          lines        `json:"cv_tips"`
}

func (w wireGenerated) model() models.Generated {
	return models.Generated{
		Skills:       w.ExtractedSkills,
		Roadmap:      roadmap.Clean(w.Roadmap),
		Assessment:   w.CVAssessment,
		SkillGaps:    roadmap.Clean(w.SkillGaps),
		LearningPath: roadmap.Clean(w.LearningPath),
		Tips:         roadmap.Clean(w.CVTips),
		Courses:      toCourses(w.Courses),
	}
}

type wireToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// saveRequest is the body of POST /progress/. Slices are never null on
// the wire.
type saveRequest struct {
	Goal         string   `json:"goal"`
	Skills       []string `json:"skills"`
	Roadmap      []string `json:"roadmap"`
	CVAssessment string   `json:"cv_assessment"`
	SkillGaps    []string `json:"skill_gaps"`
	LearningPath []string `json:"learning_path"`
	CVTips       []string `json:"cv_tips"`
}

func newSaveRequest(g models.NewGoal) saveRequest {
	return saveRequest{
		Goal:         g.Title,
		Skills:       nonNil(g.Skills),
		Roadmap:      nonNil(g.Roadmap),
		CVAssessment: g.Assessment,
		SkillGaps:    nonNil(g.SkillGaps),
		LearningPath: nonNil(g.LearningPath),
		CVTips:       nonNil(g.Tips),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type renameRequest struct {
	NewGoal string `json:"new_goal"`
}

type stepRequest struct {
	StepIdx int  `json:"step_idx"`
	Done    bool `json:"done"`
}
