package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/interviewer/internal/model"
)

func (h *Handler) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.admin.ListSessions()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	exp, err := h.admin.Export(h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("exported sessions via admin", "sessions", exp.NumSessions, "export_id", exp.ExportID)
	w.Header().Set("Content-Disposition", `attachment; filename="interviews-`+exp.ExportID+`.json"`)
	writeJSON(w, http.StatusOK, exp)
}
