package handler

import (
	"net/http"
)

// RunConsolidation handles POST /admin/consolidations.
// The batch runs synchronously and answers with its report. A batch cut
// short by the client going away still reports what it merged.
func (s *Server) RunConsolidation(w http.ResponseWriter, r *http.Request) {
	report, err := s.consolidation.Run(r.Context())
	if err != nil && !report.Interrupted {
		s.writeServiceError(w, r, err, "")
		return
	}
	if err != nil {
		s.log.WarnContext(r.Context(), "consolidation interrupted", "error", err)
	}
	writeJSON(w, http.StatusOK, report)
}
