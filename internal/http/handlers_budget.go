package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

type createBudgetRequest struct {
	Scope    string `json:"scope"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Month    string `json:"month"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	var scope core.BudgetScope
	switch req.Scope {
	case string(core.ScopeOverall):
		scope = core.OverallScope()
	case string(core.ScopeCategory):
		scope = core.CategoryScope(sanitizeInput(req.Category))
	default:
		writeError(w, http.StatusUnprocessableEntity, "scope must be overall or category")
		return
	}

	created, err := s.ledger.AddBudget(r.Context(), core.Budget{
		UserID: userID(r),
		Scope:  scope,
		Amount: core.Cents(cents),
		Month:  req.Month,
	})
	if errors.Is(err, services.ErrDuplicateBudget) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create budget failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create budget")
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" {
		if _, _, err := core.ParseMonthKey(month); err != nil {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), userID(r), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "List budgets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list budgets")
		return
	}
	dtos := make([]budgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteBudget(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete budget failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	statuses, err := s.ledger.BudgetProgress(r.Context(), userID(r), month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMonthKey) {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		slog.ErrorContext(r.Context(), "Budget progress failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute budget progress")
		return
	}
	dtos := make([]progressDTO, len(statuses))
	for i, status := range statuses {
		dtos[i] = toProgressDTO(status)
	}
	writeJSON(w, http.StatusOK, dtos)
}
