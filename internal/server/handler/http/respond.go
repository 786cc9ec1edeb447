package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/SkillMap/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": ...} error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps a *service.Error to its status and detail. Anything
// else is reported as 500 without leaking the cause.
func writeError(w http.ResponseWriter, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		writeDetail(w, se.Status, se.Detail)
		return
	}
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}
