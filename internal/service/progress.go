package service

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/repository"
)

// ProgressRepository defines the persistence operations needed by the ProgressService.
type ProgressRepository interface {
	ListByUser(ctx context.Context, username string) ([]models.Progress, error)
	Get(ctx context.Context, id int64) (*models.Progress, error)
	FindByGoal(ctx context.Context, username, goal string) (*models.Progress, error)
	Insert(ctx context.Context, p *models.Progress) error
	Update(ctx context.Context, p *models.Progress) error
	Delete(ctx context.Context, id int64) error
}

// ProgressInput is the body of a save request.
type ProgressInput struct {
	Goal         string
	Skills       []string
	Roadmap      []string
	CVAssessment string
	SkillGaps    []string
	LearningPath []string
	CVTips       []string
}

// ProgressService implements goal storage for authenticated users.
type ProgressService struct {
	repo ProgressRepository
	now  func() time.Time
}

// NewProgressService constructs a ProgressService with the provided repository.
func NewProgressService(repo ProgressRepository) *ProgressService {
	return &ProgressService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the user's goals, most recently updated first.
func (s *ProgressService) List(ctx context.Context, username string) ([]models.Progress, error) {
	return s.repo.ListByUser(ctx, username)
}

// Save creates a goal, or replaces the content of the user's goal with the
// same title. Completion state of a replaced goal is kept.
func (s *ProgressService) Save(ctx context.Context, username string, in ProgressInput) (*models.Progress, error) {
	in.Goal = strings.TrimSpace(in.Goal)
	if in.Goal == "" {
		return nil, fail(http.StatusUnprocessableEntity, "goal is required")
	}

	p, err := s.repo.FindByGoal(ctx, username, in.Goal)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = &models.Progress{Username: username, Goal: in.Goal, CompletedSteps: []int{}}
	case err != nil:
		return nil, err
	}

	p.Skills = in.Skills
	p.Roadmap = in.Roadmap
	p.CVAssessment = in.CVAssessment
	p.SkillGaps = in.SkillGaps
	p.LearningPath = in.LearningPath
	p.CVTips = in.CVTips
	p.UpdatedAt = s.now()

	if p.ID == 0 {
		err = s.repo.Insert(ctx, p)
	} else {
		err = s.repo.Update(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes one of the user's goals.
func (s *ProgressService) Delete(ctx context.Context, username string, id int64) error {
	if _, err := s.owned(ctx, username, id); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(http.StatusNotFound, "Progress not found")
	}
	return err
}

// Rename changes the title of one of the user's goals.
func (s *ProgressService) Rename(ctx context.Context, username string, id int64, goal string) (*models.Progress, error) {
	p, err := s.owned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	p.Goal = goal
	p.UpdatedAt = s.now()
	return p, s.update(ctx, p)
}

// Toggle marks step done or not done. Indices are stored as given.
func (s *ProgressService) Toggle(ctx context.Context, username string, id int64, step int, done bool) (*models.Progress, error) {
	p, err := s.owned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	has := slices.Contains(p.CompletedSteps, step)
	switch {
	case done && !has:
		p.CompletedSteps = append(p.CompletedSteps, step)
	case !done && has:
		p.CompletedSteps = slices.DeleteFunc(p.CompletedSteps, func(i int) bool { return i == step })
	}
	p.UpdatedAt = s.now()
	return p, s.update(ctx, p)
}

func (s *ProgressService) owned(ctx context.Context, username string, id int64) (*models.Progress, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.Username != username) {
		return nil, fail(http.StatusNotFound, "Progress not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProgressService) update(ctx context.Context, p *models.Progress) error {
	err := s.repo.Update(ctx, p)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(http.StatusNotFound, "Progress not found")
	}
	return err
}
