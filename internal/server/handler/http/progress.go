package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/SkillMap/internal/middleware"
	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/service"
)

// updatedAtLayout matches the naive ISO timestamps the production backend emits.
const updatedAtLayout = "2006-01-02T15:04:05.999999"

// ProgressService defines the goal operations required by ProgressHandler.
// Every call is scoped to the authenticated user.
type ProgressService interface {
	List(ctx context.Context, username string) ([]models.Progress, error)
	Save(ctx context.Context, username string, in service.ProgressInput) (*models.Progress, error)
	Delete(ctx context.Context, username string, id int64) error
	Rename(ctx context.Context, username string, id int64, goal string) (*models.Progress, error)
	Toggle(ctx context.Context, username string, id int64, step int, done bool) (*models.Progress, error)
}

// ProgressHandler serves the /progress endpoints.
type ProgressHandler struct {
	ProgressService ProgressService
}

type progressResponse struct {
	ID             int64    `json:"id"`
	Goal           string   `json:"goal"`
	Skills         []string `json:"skills"`
	Roadmap        []string `json:"roadmap"`
	CompletedSteps []int    `json:"completed_steps"`
	UpdatedAt      string   `json:"updated_at"`
	CVAssessment   string   `json:"cv_assessment"`
	SkillGaps      []string `json:"skill_gaps"`
	LearningPath   []string `json:"learning_path"`
	CVTips         []string `json:"cv_tips"`
}

func newProgressResponse(p *models.Progress) progressResponse {
	return progressResponse{
		ID:             p.ID,
		Goal:           p.Goal,
		Skills:         p.Skills,
		Roadmap:        p.Roadmap,
		CompletedSteps: p.CompletedSteps,
		UpdatedAt:      p.UpdatedAt.UTC().Format(updatedAtLayout),
		CVAssessment:   p.CVAssessment,
		SkillGaps:      p.SkillGaps,
		LearningPath:   p.LearningPath,
		CVTips:         p.CVTips,
	}
}

// List handles GET /progress/all/.
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	items, err := h.ProgressService.List(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]progressResponse, 0, len(items))
	for i := range items {
		out = append(out, newProgressResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Save handles POST /progress/, creating a goal or replacing the one with
// the same title.
func (h *ProgressHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal         string   `json:"goal"`
		Skills       []string `json:"skills"`
		Roadmap      []string `json:"roadmap"`
		CVAssessment string   `json:"cv_assessment"`
		SkillGaps    []string `json:"skill_gaps"`
		LearningPath []string `json:"learning_path"`
		CVTips       []string `json:"cv_tips"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	p, err := h.ProgressService.Save(r.Context(), middleware.GetUserFromContext(r.Context()), service.ProgressInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProgressResponse(p))
}

// Delete handles DELETE /progress/{id}/.
func (h *ProgressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := progressID(w, r)
	if !ok {
		return
	}
	if err := h.ProgressService.Delete(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rename handles PATCH /progress/{id}/ with a {"new_goal": ...} body.
func (h *ProgressHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := progressID(w, r)
	if !ok {
		return
	}
	var req struct {
		NewGoal *string `json:"new_goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewGoal == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "new_goal is required")
		return
	}

	p, err := h.ProgressService.Rename(r.Context(), middleware.GetUserFromContext(r.Context()), id, *req.NewGoal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProgressResponse(p))
}

// Toggle handles PATCH /progress/{id}/step/ with {"step_idx", "done"}.
func (h *ProgressHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := progressID(w, r)
	if !ok {
		return
	}
	var req struct {
		StepIdx *int `json:"step_idx"`
		Done    bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StepIdx == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "step_idx is required")
		return
	}

	p, err := h.ProgressService.Toggle(r.Context(), middleware.GetUserFromContext(r.Context()), id, *req.StepIdx, req.Done)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProgressResponse(p))
}

func progressID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid progress id")
		return 0, false
	}
	return id, true
}
