package goals

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/models"
)

// memAPI is an in-memory backend with the server's goal semantics. The
// optional hooks run before the corresponding call is served.
type memAPI struct {
	mu     sync.Mutex
	goals  []models.Goal
	nextID int
	clock  time.Time
	calls  map[string]int

	generated models.Generated
	uploadErr error

	onList   func(snapshot []models.Goal) ([]models.Goal, error)
	onToggle func(id string, step int, done bool)
}

func newMemAPI() *memAPI {
	return &memAPI{
		calls: map[string]int{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		generated: models.Generated{
			Skills:  []string{"SQL"},
			Roadmap: []string{"1. Learn SQL", "2. Learn Python", "3. Build a pipeline"},
			Courses: []models.Course{{Title: "Data 101"}},
		},
	}
}

func (m *memAPI) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memAPI) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *memAPI) find(id string) int {
	return slices.IndexFunc(m.goals, func(g models.Goal) bool { return g.ID == id })
}

func (m *memAPI) UploadResume(_ context.Context, _ string, _ models.Resume) (models.Generated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["upload"]++
	return m.generated, m.uploadErr
}

func (m *memAPI) ListGoals(_ context.Context) ([]models.Goal, error) {
	m.mu.Lock()
	m.calls["list"]++
	snapshot := make([]models.Goal, len(m.goals))
	for i, g := range m.goals {
		snapshot[i] = g.Clone()
	}
	hook := m.onList
	m.mu.Unlock()

	if hook != nil {
		return hook(snapshot)
	}
	return snapshot, nil
}

func (m *memAPI) SaveGoal(_ context.Context, in models.NewGoal) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["save"]++
	m.nextID++
	g := models.Goal{
		ID:             strconv.Itoa(m.nextID),
		Title:          in.Title,
		Skills:         in.Skills,
		Roadmap:        in.Roadmap,
		CompletedSteps: []int{},
		UpdatedAt:      m.tick(),
	}
	m.goals = append([]models.Goal{g}, m.goals...)
	return g.Clone(), nil
}

func (m *memAPI) DeleteGoal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	i := m.find(id)
	if i < 0 {
		return apperr.New("goals.delete", apperr.KindNotFound, "Progress not found")
	}
	m.goals = slices.Delete(m.goals, i, i+1)
	return nil
}

func (m *memAPI) RenameGoal(_ context.Context, id, title string) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["rename"]++
	i := m.find(id)
	if i < 0 {
		return models.Goal{}, apperr.New("goals.rename", apperr.KindNotFound, "Progress not found")
	}
	m.goals[i].Title = title
	m.goals[i].UpdatedAt = m.tick()
	return m.goals[i].Clone(), nil
}

func (m *memAPI) ToggleStep(_ context.Context, id string, step int, done bool) (models.Goal, error) {
	m.mu.Lock()
	hook := m.onToggle
	m.mu.Unlock()
	if hook != nil {
		hook(id, step, done)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["toggle"]++
	i := m.find(id)
	if i < 0 {
		return models.Goal{}, apperr.New("goals.toggle", apperr.KindNotFound, "Progress not found")
	}
	g := &m.goals[i]
	has := slices.Contains(g.CompletedSteps, step)
	switch {
	case done && !has:
		g.CompletedSteps = append(g.CompletedSteps, step)
	case !done && has:
		g.CompletedSteps = slices.DeleteFunc(g.CompletedSteps, func(n int) bool { return n == step })
	}
	g.UpdatedAt = m.tick()
	return g.Clone(), nil
}

// seed stores goals directly, newest first.
func (m *memAPI) seed(goals ...models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = append(m.goals, goals...)
	m.nextID += len(goals)
}

var testPDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func testResume() *models.Resume {
	return &models.Resume{Filename: "cv.pdf", Content: testPDF}
}
