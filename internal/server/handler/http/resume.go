package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/atinyakov/SkillMap/internal/service"
)

const pdfMIME = "application/pdf"

// ResumeHandler serves résumé uploads.
type ResumeHandler struct {
	// Analyzer produces the roadmap for an uploaded résumé.
	Analyzer service.Analyzer
	// MaxBytes is the largest accepted file.
	MaxBytes int64
}

type courseResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Provider    string `json:"provider"`
}

// Upload handles POST /upload_resume: a multipart form with a PDF "file"
// and a "goal" field. Nothing is stored; the client saves the result
// through /progress/.
func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	goal := strings.TrimSpace(r.FormValue("goal"))
	if goal == "" {
		writeDetail(w, http.StatusBadRequest, "Goal is required")
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "File is required")
		return
	}
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeDetail(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}
	if fh.Header.Get("Content-Type") != pdfMIME {
		writeDetail(w, http.StatusBadRequest, "Invalid content type. Expected: ['application/pdf']")
		return
	}

	content, err := io.ReadAll(io.LimitReader(f, h.MaxBytes+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if int64(len(content)) > h.MaxBytes {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("File too large. Maximum size: %dMB", h.MaxBytes>>20))
		return
	}
	if len(content) == 0 {
		writeDetail(w, http.StatusBadRequest, "File is empty")
		return
	}
	if !mimetype.Detect(content).Is(pdfMIME) {
		writeDetail(w, http.StatusBadRequest, "Could not extract text from PDF")
		return
	}

	a, err := h.Analyzer.Analyze(r.Context(), goal, content)
	if err != nil {
		writeError(w, err)
		return
	}

	courses := make([]courseResponse, 0, len(a.Courses))
	for _, c := range a.Courses {
		courses = append(courses, courseResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"extracted_skills":    a.Skills,
		"roadmap":             a.Roadmap,
		"recommended_courses": courses,
		"cv_assessment":       a.Assessment,
		"skill_gaps":          a.SkillGaps,
		"learning_path":       a.LearningPath,
		"cv_tips":             a.Tips,
	})
}
