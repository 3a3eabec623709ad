package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

type bucketDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type categoryTotalDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type monthReportDTO struct {
	Year              int               `json:"year"`
	Month             int               `json:"month"`
	Total             string            `json:"total"`
	Buckets           []bucketDTO       `json:"buckets"`
	Highest           *expenseDTO       `json:"highestExpense"`
	TopCategory       *categoryTotalDTO `json:"topCategory"`
	AverageDailySpend string            `json:"averageDailySpend"`
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year, month := now.Year(), now.Month()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(m)
	}

	report, err := s.ledger.MonthReport(r.Context(), userID(r), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month report failed", "error", err, "year", year, "month", month)
		writeError(w, http.StatusInternalServerError, "failed to build month report")
		return
	}

	dto := monthReportDTO{
		Year:              report.Year,
		Month:             int(report.Month),
		Total:             report.Total.String(),
		Buckets:           make([]bucketDTO, len(report.Buckets)),
		AverageDailySpend: report.AverageDailySpend.String(),
	}
	for i, b := range report.Buckets {
		dto.Buckets[i] = bucketDTO{Category: b.Category, Total: b.Total.String()}
	}
	if report.Highest != nil {
		highest := toExpenseDTO(*report.Highest)
		dto.Highest = &highest
	}
	if report.TopCategory != nil {
		dto.TopCategory = &categoryTotalDTO{
			Category: report.TopCategory.Category,
			Total:    report.TopCategory.Total.String(),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

type comparisonDTO struct {
	Current       string   `json:"current"`
	Previous      string   `json:"previous"`
	PercentChange *float64 `json:"percentChange"`
}

func (s *Server) handleComparisonReport(w http.ResponseWriter, r *http.Request) {
	comparison, err := s.ledger.CompareMonths(r.Context(), userID(r), time.Now().UTC())
	if err != nil {
		slog.ErrorContext(r.Context(), "Comparison report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build comparison")
		return
	}
	writeJSON(w, http.StatusOK, comparisonDTO{
		Current:       comparison.Current.String(),
		Previous:      comparison.Previous.String(),
		PercentChange: comparison.PercentChange,
	})
}

type trendPointDTO struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Total string `json:"total"`
}

func (s *Server) handleTrendReport(w http.ResponseWriter, r *http.Request) {
	points, err := s.ledger.MonthlyTrend(r.Context(), userID(r), time.Now().UTC())
	if err != nil {
		slog.ErrorContext(r.Context(), "Trend report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build trend")
		return
	}
	dtos := make([]trendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = trendPointDTO{Year: p.Year, Month: int(p.Month), Total: p.Total.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}
