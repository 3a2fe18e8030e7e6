package httpserver

import (
	"net/http"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (s *Server) handleListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := s.catalog.Categories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

func (s *Server) handleCreateCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(CurrentUser(r)) {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		var req categoryRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		category, err := s.catalog.CreateCategory(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	}
}
