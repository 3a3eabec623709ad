package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type createExpenseRequest struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	expense := core.Expense{
		UserID:      userID(r),
		Category:    sanitizeInput(req.Category),
		Amount:      core.Cents(cents),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}

	created, err := s.ledger.AddExpense(r.Context(), expense)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create expense failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range")
		return
	}
	search := sanitizeInput(r.URL.Query().Get("search"))

	expenses, err := s.ledger.ListExpenses(r.Context(), userID(r), from, to, search)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	dtos := make([]expenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteExpense(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete expense failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isValidationError reports whether the error comes from core validation
// and should surface as a 422 rather than a 500.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidFrequency,
		core.ErrInvalidMonthKey,
		core.ErrEmptyDescription,
		core.ErrEmptyCategory,
		core.ErrEmptyPerson,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
