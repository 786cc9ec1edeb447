// Package goals keeps the client's cached view of the user's goals
// consistent with the backend. All mutations go through Store, which
// re-fetches the collection after every successful write.
package goals

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/models"
)

// API is the backend surface the store needs.
type API interface {
	UploadResume(ctx context.Context, title string, r models.Resume) (models.Generated, error)
	ListGoals(ctx context.Context) ([]models.Goal, error)
	SaveGoal(ctx context.Context, g models.NewGoal) (models.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	RenameGoal(ctx context.Context, id, title string) (models.Goal, error)
	ToggleStep(ctx context.Context, id string, step int, done bool) (models.Goal, error)
}

// State is a snapshot of the store. It shares nothing with the store.
type State struct {
	// Goals is newest first, as delivered by the server.
	Goals      []models.Goal
	SelectedID string
	// Result projects the selected goal; nil when nothing is selected.
	Result *Result
	// Loading counts in-flight mutations.
	Loading int
	// Err is the last failure, until dismissed.
	Err error
}

// Store is the goal cache. It is safe for concurrent use; network calls
// are made without holding its lock.
type Store struct {
	api       API
	log       *zap.Logger
	maxUpload int64

	mu       sync.Mutex
	goals    []models.Goal
	selected string
	result   *Result
	loading  int
	err      error
	// courses remembers generated course lists, which the server does not
	// store with the goal.
	courses map[string][]models.Course

	// issued is the last sequence number handed out; applied is the
	// sequence of the state currently in the cache. A fetch result older
	// than applied is dropped.
	issued  uint64
	applied uint64
	// epoch changes on Reset; responses from an older epoch are dropped.
	epoch uint64

	goalLocks keyedMutex
	refresh   singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates an empty store. maxUploadBytes bounds résumé size; zero
// disables the check.
func New(api API, maxUploadBytes int64, log *zap.Logger) *Store {
	return &Store{
		api:       api,
		log:       log,
		maxUpload: maxUploadBytes,
		courses:   make(map[string][]models.Course),
		subs:      make(map[int]func(State)),
	}
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	st := State{
		SelectedID: s.selected,
		Loading:    s.loading,
		Err:        s.err,
	}
	st.Goals = make([]models.Goal, len(s.goals))
	for i, g := range s.goals {
		st.Goals[i] = g.Clone()
	}
	if s.result != nil {
		r := *s.result
		r.Skills = slices.Clone(r.Skills)
		r.Steps = slices.Clone(r.Steps)
		r.SkillGaps = slices.Clone(r.SkillGaps)
		r.LearningPath = slices.Clone(r.LearningPath)
		r.Tips = slices.Clone(r.Tips)
		r.Courses = slices.Clone(r.Courses)
		st.Result = &r
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	st := s.State()
	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// FetchAll replaces the collection with the server's. Selection is kept if
// the goal still exists, else falls back to the head. On failure the cache
// is left as it was.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	seq := s.issue()
	epoch := s.epoch
	s.mu.Unlock()

	goals, err := s.api.ListGoals(ctx)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	if seq < s.applied {
		s.mu.Unlock()
		s.log.Debug("dropping stale goal list", zap.Uint64("seq", seq), zap.Uint64("applied", s.applied))
		return nil
	}
	s.applied = seq
	s.goals = goals
	for i := range s.goals {
		if len(s.goals[i].Courses) == 0 {
			s.goals[i].Courses = s.courses[s.goals[i].ID]
		}
	}
	s.reselect()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Refresh is a user-initiated FetchAll. Concurrent calls share one request
// and the context of the first caller.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return nil, s.FetchAll(ctx)
	})
	return err
}

// SelectGoal selects a cached goal. An unknown id is a NotFound error and
// leaves the selection unchanged.
func (s *Store) SelectGoal(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return apperr.New("goals.select", apperr.KindNotFound, "goal "+id+" not found")
	}
	s.selected = id
	s.recompute()
	s.mu.Unlock()

	s.notify()
	return nil
}

// DismissError clears the last failure.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

// Reset empties the store. Responses to requests issued before the reset
// are dropped when they arrive. It is the logout hook.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch++
	s.goals = nil
	s.selected = ""
	s.result = nil
	s.err = nil
	s.courses = make(map[string][]models.Course)
	s.applied = s.issued
	s.mu.Unlock()

	s.log.Info("goal store reset")
	s.notify()
}

// issue hands out the next sequence number. Callers hold s.mu.
func (s *Store) issue() uint64 {
	s.issued++
	return s.issued
}

// indexOf returns the position of id in the cache, or -1. Callers hold s.mu.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.goals, func(g models.Goal) bool { return g.ID == id })
}

// reselect keeps the selection valid, falling back to the head. Callers
// hold s.mu.
func (s *Store) reselect() {
	if s.indexOf(s.selected) < 0 {
		s.selected = ""
		if len(s.goals) > 0 {
			s.selected = s.goals[0].ID
		}
	}
	s.recompute()
}

// recompute rebuilds the projection of the selected goal. Callers hold s.mu.
func (s *Store) recompute() {
	i := s.indexOf(s.selected)
	if i < 0 {
		s.result = nil
		return
	}
	s.result = project(s.goals[i], s.log)
}
