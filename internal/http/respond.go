package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Wire shapes. Amounts cross the API as two-decimal strings; dates as
// RFC 3339.

type repaymentDTO struct {
	Person              string `json:"person"`
	OriginalDescription string `json:"originalDescription"`
}

type expenseDTO struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Amount      string        `json:"amount"`
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	Repayment   *repaymentDTO `json:"repayment,omitempty"`
}

type owedDTO struct {
	ID          string    `json:"id"`
	Person      string    `json:"person"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

type recurringDTO struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Frequency   string    `json:"frequency"`
	StartDate   time.Time `json:"startDate"`
	NextDueDate time.Time `json:"nextDueDate"`
}

type budgetDTO struct {
	ID       string  `json:"id"`
	Scope    string  `json:"scope"`
	Category *string `json:"category,omitempty"`
	Label    string  `json:"label"`
	Amount   string  `json:"amount"`
	Month    string  `json:"month"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:          e.ID,
		Category:    e.Category,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Date:        e.Date,
	}
	if e.Repayment != nil {
		dto.Repayment = &repaymentDTO{
			Person:              e.Repayment.Person,
			OriginalDescription: e.Repayment.OriginalDescription,
		}
	}
	return dto
}

func toBudgetDTO(b core.Budget) budgetDTO {
	dto := budgetDTO{
		ID:     b.ID,
		Scope:  string(b.Scope.Kind),
		Label:  b.Scope.Label(),
		Amount: b.Amount.String(),
		Month:  b.Month,
	}
	if b.Scope.Kind == core.ScopeCategory {
		category := b.Scope.Category
		dto.Category = &category
	}
	return dto
}

type progressDTO struct {
	Budget    budgetDTO `json:"budget"`
	Spent     string    `json:"spent"`
	Remaining string    `json:"remaining"`
	Percent   *float64  `json:"percent"`
	Level     string    `json:"level"`
}

func toProgressDTO(status services.BudgetStatus) progressDTO {
	return progressDTO{
		Budget:    toBudgetDTO(status.Budget),
		Spent:     status.Progress.Spent.String(),
		Remaining: status.Progress.Remaining.String(),
		Percent:   status.Progress.Percent,
		Level:     string(status.Progress.Level),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
