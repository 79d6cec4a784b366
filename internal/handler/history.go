package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/welfare-transport/backend/internal/domain"
)

// GetHistory handles GET /history/{code}.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	params := domain.NewPaginationParams(page, limit)

	entries, total, err := s.history.History(r.Context(), chi.URLParam(r, "code"), params)
	if err != nil {
		s.writeServiceError(w, r, err, "management code not found")
		return
	}

	data := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		data[i] = historyEntryResponse{
			Record:  toTripRecordResponse(e.Record),
			Details: toTripDetailResponses(e.Details),
		}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Data: data,
		Pagination: pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}
