package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	n, err := parseCreateExpense(w, r)
	if err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}

	e, err := s.svc.CreateExpense(r.Context(), n)
	if err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	if items == nil {
		items = []core.Expense{}
	}
	respondJSON(w, http.StatusOK, items)
}

// handleDeleteExpense answers 200 whether or not the id existed.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, log.OpDelete, err)
		return
	}
	respondMessage(w, http.StatusOK, "Expense Deleted")
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Categories())
}
