package api

import (
	"net/http"

	"github.com/codewithboateng/drulift/internal/rules"
)

// GET /api/v1/rules (enabled rules; no auth needed for read-only)
func (s *Server) handleRulesMeta(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
		Docs    string `json:"docs,omitempty"`
	}
	out := []R{}
	for _, rr := range rules.List() {
		out = append(out, R{ID: rr.ID, Summary: rr.Summary, Docs: rr.Docs})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}
