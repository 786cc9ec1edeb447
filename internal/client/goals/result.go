package goals

import (
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/roadmap"
)

// Step is one roadmap entry as presented.
type Step struct {
	// Index identifies the step for ToggleStep.
	Index int
	// Raw is the canonical step text.
	Raw string
	// Text is Raw with list markers removed.
	Text string
	Done bool
}

// Result is the read-only projection of the selected goal.
type Result struct {
	GoalID    string
	Title     string
	Skills    []string
	Steps     []Step
	Completed int
	Total     int
	// Percent is Completed/Total rounded to the nearest integer; 0 when Total is 0.
	Percent   int
	UpdatedAt time.Time

	// Assessment is the markdown assessment rendered to plain text.
	Assessment   string
	SkillGaps    []string
	LearningPath []string
	Tips         []string
	Courses      []models.Course
}

// project builds the Result for g. Completed indices outside the roadmap
// are ignored and reported.
func project(g models.Goal, log *zap.Logger) *Result {
	r := &Result{
		GoalID:       g.ID,
		Title:        g.Title,
		Skills:       slices.Clone(g.Skills),
		Total:        len(g.Roadmap),
		UpdatedAt:    g.UpdatedAt,
		Assessment:   roadmap.PlainText(g.Assessment),
		SkillGaps:    roadmap.DisplayAll(g.SkillGaps),
		LearningPath: roadmap.DisplayAll(g.LearningPath),
		Tips:         roadmap.DisplayAll(g.Tips),
		Courses:      slices.Clone(g.Courses),
	}

	done := make(map[int]bool, len(g.CompletedSteps))
	var invalid []int
	for _, idx := range g.CompletedSteps {
		if idx < 0 || idx >= len(g.Roadmap) {
			invalid = append(invalid, idx)
			continue
		}
		done[idx] = true
	}
	if len(invalid) > 0 {
		log.Warn("ignoring out-of-range completed steps",
			zap.String("goal_id", g.ID),
			zap.Ints("indices", invalid),
			zap.Int("steps", len(g.Roadmap)),
		)
	}

	r.Steps = make([]Step, len(g.Roadmap))
	for i, raw := range g.Roadmap {
		r.Steps[i] = Step{Index: i, Raw: raw, Text: roadmap.Display(raw), Done: done[i]}
	}
	r.Completed = len(done)
	r.Percent = percent(r.Completed, r.Total)
	return r
}

// Completion counts the distinct in-range completed steps of g.
func Completion(g models.Goal) (completed, total, pct int) {
	seen := make(map[int]bool, len(g.CompletedSteps))
	for _, idx := range g.CompletedSteps {
		if idx >= 0 && idx < len(g.Roadmap) {
			seen[idx] = true
		}
	}
	return len(seen), len(g.Roadmap), percent(len(seen), len(g.Roadmap))
}

func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
