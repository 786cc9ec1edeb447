package goals

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/validation"
)

// begin marks a mutation in flight and returns the epoch it runs in and
// the function that ends it.
func (s *Store) begin() (uint64, func()) {
	s.mu.Lock()
	s.loading++
	epoch := s.epoch
	s.mu.Unlock()
	s.notify()

	return epoch, func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
		s.notify()
	}
}

// fail records err as the last failure unless the store was reset since
// epoch, and returns it.
func (s *Store) fail(epoch uint64, err error) error {
	s.mu.Lock()
	if epoch == s.epoch {
		s.err = err
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// patch replaces the cached copy of g with the server's response. It
// counts as a newer state than any fetch already in flight.
func (s *Store) patch(epoch uint64, g models.Goal) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if len(g.Courses) == 0 {
		g.Courses = s.courses[g.ID]
	}
	if i := s.indexOf(g.ID); i >= 0 {
		s.goals[i] = g
	} else {
		s.goals = append([]models.Goal{g}, s.goals...)
	}
	s.applied = s.issue()
	s.recompute()
	s.mu.Unlock()
	s.notify()
}

// CreateFromResume uploads the résumé, saves the generated goal, re-fetches
// and selects the new goal. Nothing is selected or cached on failure before
// the save.
func (s *Store) CreateFromResume(ctx context.Context, title string, resume *models.Resume) (models.Goal, error) {
	const op = "goals.create"

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	title, err := validation.GoalTitle(title)
	if err != nil {
		return models.Goal{}, s.fail(epoch, err)
	}
	if _, err := validation.Resume(resume, s.maxUpload); err != nil {
		return models.Goal{}, s.fail(epoch, err)
	}

	epoch, done := s.begin()
	defer done()

	gen, err := s.api.UploadResume(ctx, title, *resume)
	if err != nil {
		return models.Goal{}, s.fail(epoch, err)
	}
	if len(gen.Roadmap) == 0 {
		return models.Goal{}, s.fail(epoch, apperr.New(op, apperr.KindServer, "no roadmap steps were generated, please try again"))
	}

	saved, err := s.api.SaveGoal(ctx, models.NewGoal{
		Title:        title,
		Skills:       gen.Skills,
		Roadmap:      gen.Roadmap,
		Assessment:   gen.Assessment,
		SkillGaps:    gen.SkillGaps,
		LearningPath: gen.LearningPath,
		Tips:         gen.Tips,
	})
	if err != nil {
		return models.Goal{}, s.fail(epoch, err)
	}
	s.log.Info("goal created", zap.String("goal_id", saved.ID), zap.Int("steps", len(saved.Roadmap)))

	s.mu.Lock()
	if epoch == s.epoch && len(gen.Courses) > 0 && saved.ID != "" {
		s.courses[saved.ID] = slices.Clone(gen.Courses)
	}
	s.mu.Unlock()
	s.patch(epoch, saved)

	fetchErr := s.FetchAll(ctx)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return saved, fetchErr
	}
	s.selectCreated(saved)
	var out models.Goal
	if i := s.indexOf(s.selected); i >= 0 {
		out = s.goals[i].Clone()
	}
	s.mu.Unlock()
	s.notify()
	return out, fetchErr
}

// selectCreated selects the saved goal by id, else by title, else the
// head. Callers hold s.mu.
func (s *Store) selectCreated(saved models.Goal) {
	switch {
	case s.indexOf(saved.ID) >= 0:
		s.selected = saved.ID
	default:
		if i := slices.IndexFunc(s.goals, func(g models.Goal) bool { return g.Title == saved.Title }); i >= 0 {
			s.selected = s.goals[i].ID
		} else if len(s.goals) > 0 {
			s.selected = s.goals[0].ID
		} else {
			s.selected = ""
		}
	}
	s.recompute()
}

// RenameGoal changes a goal's title and re-fetches.
func (s *Store) RenameGoal(ctx context.Context, id, title string) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	title, err := validation.RenameTitle(title)
	if err != nil {
		return s.fail(epoch, err)
	}

	epoch, done := s.begin()
	defer done()
	unlock := s.goalLocks.Lock(id)
	defer unlock()

	updated, err := s.api.RenameGoal(ctx, id, title)
	if err != nil {
		return s.fail(epoch, err)
	}
	s.patch(epoch, updated)
	return s.FetchAll(ctx)
}

// DeleteGoal removes a goal. The cache is updated locally without a
// re-fetch, and fetches issued before the delete are dropped.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	epoch, done := s.begin()
	defer done()
	unlock := s.goalLocks.Lock(id)
	defer unlock()

	if err := s.api.DeleteGoal(ctx, id); err != nil {
		return s.fail(epoch, err)
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil
	}
	s.goals = slices.DeleteFunc(s.goals, func(g models.Goal) bool { return g.ID == id })
	delete(s.courses, id)
	s.applied = s.issue()
	s.reselect()
	s.mu.Unlock()

	s.log.Info("goal deleted", zap.String("goal_id", id))
	s.notify()
	return nil
}

// ToggleStep flips the completion of step stepIndex of the selected goal
// and re-fetches. The new state is decided after the goal's lock is held,
// so back-to-back toggles of one step alternate.
func (s *Store) ToggleStep(ctx context.Context, stepIndex int) error {
	const op = "goals.toggle"

	s.mu.Lock()
	id := s.selected
	epoch := s.epoch
	s.mu.Unlock()
	if id == "" {
		return s.fail(epoch, apperr.Validation(op, "no goal selected"))
	}

	epoch, done := s.begin()
	defer done()
	unlock := s.goalLocks.Lock(id)
	defer unlock()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return s.fail(epoch, apperr.New(op, apperr.KindNotFound, "goal "+id+" not found"))
	}
	g := s.goals[i]
	if stepIndex < 0 || stepIndex >= len(g.Roadmap) {
		s.mu.Unlock()
		return s.fail(epoch, apperr.Validation(op, fmt.Sprintf("step %d is out of range, the roadmap has %d steps", stepIndex, len(g.Roadmap))))
	}
	want := !g.IsDone(stepIndex)
	s.mu.Unlock()

	updated, err := s.api.ToggleStep(ctx, id, stepIndex, want)
	if err != nil {
		return s.fail(epoch, err)
	}
	s.patch(epoch, updated)
	return s.FetchAll(ctx)
}
