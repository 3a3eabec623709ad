package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type createRecurringRequest struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"startDate"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start date")
		return
	}

	created, err := s.ledger.AddRecurring(r.Context(), core.RecurringExpense{
		UserID:      userID(r),
		Category:    sanitizeInput(req.Category),
		Amount:      core.Cents(cents),
		Description: sanitizeInput(req.Description),
		Frequency:   core.Frequency(req.Frequency),
		StartDate:   start,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create recurring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create recurring expense")
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringDTO(created))
}

func toRecurringDTO(re core.RecurringExpense) recurringDTO {
	return recurringDTO{
		ID:          re.ID,
		Category:    re.Category,
		Amount:      re.Amount.String(),
		Description: re.Description,
		Frequency:   string(re.Frequency),
		StartDate:   re.StartDate,
		NextDueDate: re.NextDueDate,
	}
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	defs, err := s.ledger.ListRecurring(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "List recurring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recurring expenses")
		return
	}
	dtos := make([]recurringDTO, len(defs))
	for i, re := range defs {
		dtos[i] = toRecurringDTO(re)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteRecurring(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recurring expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete recurring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete recurring expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type processRecurringResponse struct {
	Created  int `json:"created"`
	Advanced int `json:"advanced"`
}

// handleProcessRecurring runs materialization for the caller. Idempotent
// at a given instant: a second call right after the first is a no-op.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	result, err := s.materializer.Run(r.Context(), userID(r), time.Now().UTC())
	if err != nil {
		slog.ErrorContext(r.Context(), "Materialization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process recurring expenses")
		return
	}
	writeJSON(w, http.StatusOK, processRecurringResponse{Created: result.Created, Advanced: result.Advanced})
}
