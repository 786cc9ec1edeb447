package service

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/repository"
)

// memProgressRepo is an in-memory ProgressRepository.
type memProgressRepo struct {
	rows   map[int64]models.Progress
	nextID int64
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{rows: map[int64]models.Progress{}}
}

func (m *memProgressRepo) ListByUser(_ context.Context, username string) ([]models.Progress, error) {
	var out []models.Progress
	for _, p := range m.rows {
		if p.Username == username {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProgressRepo) Get(_ context.Context, id int64) (*models.Progress, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memProgressRepo) FindByGoal(_ context.Context, username, goal string) (*models.Progress, error) {
	for _, p := range m.rows {
		if p.Username == username && p.Goal == goal {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProgressRepo) Insert(_ context.Context, p *models.Progress) error {
	m.nextID++
	p.ID = m.nextID
	m.rows[p.ID] = *p
	return nil
}

func (m *memProgressRepo) Update(_ context.Context, p *models.Progress) error {
	if _, ok := m.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memProgressRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func TestProgress_SaveUpsertsByTitle(t *testing.T) {
	svc := NewProgressService(newMemProgressRepo())
	ctx := context.Background()

	first, err := svc.Save(ctx, "alice", ProgressInput{Goal: "Analyst", Roadmap: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Toggle(ctx, "alice", first.ID, 1, true); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	second, err := svc.Save(ctx, "alice", ProgressInput{Goal: "Analyst", Roadmap: []string{"x", "y", "z"}})
	if err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Save with same title created id %d; want %d", second.ID, first.ID)
	}
	if !reflect.DeepEqual(second.Roadmap, []string{"x", "y", "z"}) || !reflect.DeepEqual(second.CompletedSteps, []int{1}) {
		t.Errorf("upserted goal = %+v", second)
	}

	if _, err := svc.Save(ctx, "alice", ProgressInput{Goal: "  "}); statusOf(err) != http.StatusUnprocessableEntity {
		t.Errorf("blank goal error = %v; want 422", err)
	}
}

func TestProgress_Toggle(t *testing.T) {
	svc := NewProgressService(newMemProgressRepo())
	ctx := context.Background()
	p, _ := svc.Save(ctx, "alice", ProgressInput{Goal: "G", Roadmap: []string{"a", "b", "c"}})

	steps := func(done bool, idx int) []int {
		t.Helper()
		got, err := svc.Toggle(ctx, "alice", p.ID, idx, done)
		if err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		return got.CompletedSteps
	}

	if got := steps(true, 0); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("after done 0: %v", got)
	}
	if got := steps(true, 0); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("done is idempotent: %v", got)
	}
	if got := steps(true, 2); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("after done 2: %v", got)
	}
	if got := steps(false, 0); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("after undone 0: %v", got)
	}
}

func TestProgress_Ownership(t *testing.T) {
	svc := NewProgressService(newMemProgressRepo())
	ctx := context.Background()
	p, _ := svc.Save(ctx, "alice", ProgressInput{Goal: "G", Roadmap: []string{"a"}})

	if _, err := svc.Rename(ctx, "mallory", p.ID, "mine"); statusOf(err) != http.StatusNotFound {
		t.Errorf("Rename other user's goal error = %v; want 404", err)
	}
	if _, err := svc.Toggle(ctx, "mallory", p.ID, 0, true); statusOf(err) != http.StatusNotFound {
		t.Errorf("Toggle other user's goal error = %v; want 404", err)
	}
	if err := svc.Delete(ctx, "mallory", p.ID); statusOf(err) != http.StatusNotFound {
		t.Errorf("Delete other user's goal error = %v; want 404", err)
	}
	if err := svc.Delete(ctx, "alice", 999); statusOf(err) != http.StatusNotFound {
		t.Errorf("Delete missing goal error = %v; want 404", err)
	}

	renamed, err := svc.Rename(ctx, "alice", p.ID, "H")
	if err != nil || renamed.Goal != "H" {
		t.Errorf("Rename = %+v, %v", renamed, err)
	}
	if err := svc.Delete(ctx, "alice", p.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if list, _ := svc.List(ctx, "alice"); len(list) != 0 {
		t.Errorf("List after delete = %+v", list)
	}
}

func TestTemplateAnalyzer(t *testing.T) {
	a, err := TemplateAnalyzer{}.Analyze(context.Background(), " Data Analyst ", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Roadmap == "" || len(a.Skills) == 0 || len(a.Courses) != 1 {
		t.Errorf("Analyze = %+v", a)
	}
	if a.Courses[0].Title != "Data Analyst Fundamentals" {
		t.Errorf("course title = %q", a.Courses[0].Title)
	}
}
