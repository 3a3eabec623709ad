package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

type createOwedRequest struct {
	Person      string `json:"person"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (s *Server) decodeOwedRequest(w http.ResponseWriter, r *http.Request) (createOwedRequest, core.Money, time.Time, bool) {
	var req createOwedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, core.Money{}, time.Time{}, false
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return req, core.Money{}, time.Time{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return req, core.Money{}, time.Time{}, false
	}
	return req, core.Cents(cents), date, true
}

func (s *Server) handleCreateOwed(w http.ResponseWriter, r *http.Request) {
	req, amount, date, ok := s.decodeOwedRequest(w, r)
	if !ok {
		return
	}
	created, err := s.ledger.AddOwed(r.Context(), core.OwedAmount{
		UserID:      userID(r),
		Person:      sanitizeInput(req.Person),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create owed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create owed amount")
		return
	}
	writeJSON(w, http.StatusCreated, owedDTO{
		ID: created.ID, Person: created.Person, Amount: created.Amount.String(),
		Description: created.Description, Date: created.Date,
	})
}

func (s *Server) handleListOwed(w http.ResponseWriter, r *http.Request) {
	owed, err := s.ledger.ListOwed(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "List owed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list owed amounts")
		return
	}
	dtos := make([]owedDTO, len(owed))
	for i, o := range owed {
		dtos[i] = owedDTO{ID: o.ID, Person: o.Person, Amount: o.Amount.String(), Description: o.Description, Date: o.Date}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleDeleteOwed(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteOwed(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "owed amount not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete owed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete owed amount")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettleOwed(w http.ResponseWriter, r *http.Request) {
	expense, err := s.settlement.SettleOwed(r.Context(), userID(r), r.PathValue("id"), time.Now().UTC())
	if errors.Is(err, services.ErrNothingToSettle) {
		writeError(w, http.StatusNotFound, "nothing to settle")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Settle owed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to settle owed amount")
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(expense))
}

func (s *Server) handleCreateOwedToMe(w http.ResponseWriter, r *http.Request) {
	req, amount, date, ok := s.decodeOwedRequest(w, r)
	if !ok {
		return
	}
	created, err := s.ledger.AddOwedToMe(r.Context(), core.OwedToMe{
		UserID:      userID(r),
		Person:      sanitizeInput(req.Person),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create owed-to-me failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create owed-to-me")
		return
	}
	writeJSON(w, http.StatusCreated, owedDTO{
		ID: created.ID, Person: created.Person, Amount: created.Amount.String(),
		Description: created.Description, Date: created.Date,
	})
}

func (s *Server) handleListOwedToMe(w http.ResponseWriter, r *http.Request) {
	owed, err := s.ledger.ListOwedToMe(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "List owed-to-me failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list owed-to-me")
		return
	}
	dtos := make([]owedDTO, len(owed))
	for i, o := range owed {
		dtos[i] = owedDTO{ID: o.ID, Person: o.Person, Amount: o.Amount.String(), Description: o.Description, Date: o.Date}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleDeleteOwedToMe(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.DeleteOwedToMe(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "owed-to-me not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete owed-to-me failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete owed-to-me")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettleOwedToMe(w http.ResponseWriter, r *http.Request) {
	err := s.settlement.SettleOwedToMe(r.Context(), userID(r), r.PathValue("id"))
	if errors.Is(err, services.ErrNothingToSettle) {
		writeError(w, http.StatusNotFound, "nothing to settle")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Settle owed-to-me failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to settle owed-to-me")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
