package handlers

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// ReportHandler serves /api/reports.
type ReportHandler struct {
	errorWriter
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService, logger *log.Logger, dev bool) *ReportHandler {
	return &ReportHandler{errorWriter: newErrorWriter(logger, dev), reports: reports}
}

// DailySummary reports on ?date=YYYY-MM-DD, today by default.
func (h *ReportHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			h.writeError(w, r, service.Validation("date must be a date (YYYY-MM-DD) or RFC 3339 timestamp"))
			return
		}
		day = t
	}
	summary, err := h.reports.DailySummary(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Daily summary generated successfully", summary)
}

// MaintenanceDue lists vehicles due for service within ?days (30 by default).
func (h *ReportHandler) MaintenanceDue(w http.ResponseWriter, r *http.Request) {
	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 365 {
			h.writeError(w, r, service.Validation("days must be between 1 and 365"))
			return
		}
		days = n
	}
	items, err := h.reports.MaintenanceDue(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Maintenance due report generated successfully", items)
}

func (h *ReportHandler) FleetPerformance(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	perf, err := h.reports.FleetPerformance(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fleet performance report generated successfully", perf)
}
