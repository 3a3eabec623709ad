package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"
)

func newTestServer() (*Server, *memory.Store) {
	store := memory.New()
	ledgerSvc := services.NewLedgerService(store, nil)
	materializer := services.NewMaterializer(store, nil)
	settlement := services.NewSettlement(store, nil)
	s := NewServer(":0", ledgerSvc, materializer, settlement, auth.StaticVerifier{UserID: "u1"})
	return s, store
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer()
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token returned %d, want 401", rec.Code)
	}
}

func TestCreateAndListExpense(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"category":"Groceries","amount":"12,34","description":"weekly shop","date":"2025-03-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Amount != "12.34" {
		t.Errorf("created = %+v", created)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/expenses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var listed []expenseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v", listed)
	}
}

func TestCreateExpenseRejectsBadAmounts(t *testing.T) {
	s, _ := newTestServer()
	for _, amount := range []string{"0", "-5", "abc", ""} {
		rec := doRequest(t, s, http.MethodPost, "/api/expenses",
			`{"category":"X","amount":"`+amount+`","description":"d","date":"2025-03-10"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("amount %q returned %d, want 422", amount, rec.Code)
		}
	}
}

func TestDeleteExpenseNotFound(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodDelete, "/api/expenses/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing returned %d, want 404", rec.Code)
	}
}

func TestListExpensesDateRangeWidensToEndOfDay(t *testing.T) {
	s, store := newTestServer()

	late := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	if err := store.CreateExpense(context.Background(), core.Expense{
		ID: "e1", UserID: "u1", Category: "X", Amount: core.Cents(100), Description: "late", Date: late,
	}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/expenses?from=2025-03-10&to=2025-03-10", "")
	var listed []expenseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Errorf("date-only to bound excluded a same-day expense: %v", listed)
	}
}

func TestSettleOwedFlow(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/owed",
		`{"person":"Alice","amount":"25.00","description":"tickets","date":"2025-03-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create owed returned %d: %s", rec.Code, rec.Body.String())
	}
	var owed owedDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &owed); err != nil {
		t.Fatal(err)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/owed/"+owed.ID+"/settle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("settle returned %d: %s", rec.Code, rec.Body.String())
	}
	var expense expenseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &expense); err != nil {
		t.Fatal(err)
	}
	if expense.Category != core.CategoryRepayment || expense.Description != "Paid back Alice" {
		t.Errorf("settlement expense = %+v", expense)
	}
	if expense.Repayment == nil || expense.Repayment.OriginalDescription != "tickets" {
		t.Errorf("repayment details = %+v", expense.Repayment)
	}

	// Settling again finds nothing.
	rec = doRequest(t, s, http.MethodPost, "/api/owed/"+owed.ID+"/settle", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second settle returned %d, want 404", rec.Code)
	}

	// The owed list is now empty.
	rec = doRequest(t, s, http.MethodGet, "/api/owed", "")
	var remaining []owedDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &remaining); err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("owed list after settle = %v", remaining)
	}
}

func TestSettleOwedToMeCreatesNoExpense(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/owedtome",
		`{"person":"Bob","amount":"10.00","description":"lunch","date":"2025-03-01"}`)
	var owed owedDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &owed); err != nil {
		t.Fatal(err)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/owedtome/"+owed.ID+"/settle", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("settle returned %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/expenses", "")
	var expenses []expenseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &expenses); err != nil {
		t.Fatal(err)
	}
	if len(expenses) != 0 {
		t.Errorf("settling a receivable created expenses: %v", expenses)
	}
}

func TestRecurringProcessEndpoint(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/recurring",
		`{"category":"Bills","amount":"9.99","description":"streaming","frequency":"monthly","startDate":"2025-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurring returned %d: %s", rec.Code, rec.Body.String())
	}
	var created recurringDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if !created.NextDueDate.Equal(created.StartDate) {
		t.Errorf("next due %v != start %v", created.NextDueDate, created.StartDate)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/recurring/process", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("process returned %d: %s", rec.Code, rec.Body.String())
	}
	var result processRecurringResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Created != 1 {
		t.Errorf("process created %d, want 1", result.Created)
	}
}

func TestCreateRecurringInvalidFrequency(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/api/recurring",
		`{"category":"Bills","amount":"9.99","description":"x","frequency":"hourly","startDate":"2025-01-01"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid frequency returned %d, want 422", rec.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/api/budgets",
		`{"scope":"category","category":"Groceries","amount":"100.00","month":"2025-03"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget returned %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate month+scope conflicts.
	rec = doRequest(t, s, http.MethodPost, "/api/budgets",
		`{"scope":"category","category":"Groceries","amount":"50.00","month":"2025-03"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate budget returned %d, want 409", rec.Code)
	}

	doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"category":"Groceries","amount":"80.00","description":"food","date":"2025-03-10"}`)

	rec = doRequest(t, s, http.MethodGet, "/api/budgets/progress?month=2025-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress returned %d: %s", rec.Code, rec.Body.String())
	}
	var progress []progressDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &progress); err != nil {
		t.Fatal(err)
	}
	if len(progress) != 1 || progress[0].Spent != "80.00" || progress[0].Level != "warning" {
		t.Errorf("progress = %+v", progress)
	}
}

func TestMonthReportEndpoint(t *testing.T) {
	s, _ := newTestServer()

	doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"category":"Groceries","amount":"200.00","description":"food","date":"2025-03-03"}`)
	doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"category":"Transport","amount":"110.00","description":"fuel","date":"2025-03-14"}`)

	rec := doRequest(t, s, http.MethodGet, "/api/reports/month?year=2025&month=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d: %s", rec.Code, rec.Body.String())
	}
	var report monthReportDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Total != "310.00" {
		t.Errorf("total = %q, want 310.00", report.Total)
	}
	if report.Highest == nil || report.Highest.Amount != "200.00" {
		t.Errorf("highest = %+v", report.Highest)
	}
	if report.TopCategory == nil || report.TopCategory.Category != "Groceries" {
		t.Errorf("top category = %+v", report.TopCategory)
	}
	// 310.00 over 31 days.
	if report.AverageDailySpend != "10.00" {
		t.Errorf("average daily spend = %q, want 10.00", report.AverageDailySpend)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/reports/month?month=13", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("month 13 returned %d, want 400", rec.Code)
	}
}

func TestTrendEndpointReturnsTwelvePoints(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/reports/trend", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trend returned %d", rec.Code)
	}
	var points []trendPointDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatal(err)
	}
	if len(points) != 12 {
		t.Errorf("got %d points, want 12", len(points))
	}
}
