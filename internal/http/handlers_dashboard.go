package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"grana/internal/core"
)

// handleDashboardSummary serves the user's all-time ledger totals.
func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, sum)
}

// handleDashboardDailySeries serves the dense per-day series for one month.
// Year and month default to the current date.
func (s *Server) handleDashboardDailySeries(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := now.Year()
	month := now.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, core.Validationf("invalid year %q", v))
			return
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			respondError(w, r, core.Validationf("invalid month %q", v))
			return
		}
		month = time.Month(m)
	}

	buckets, err := s.ledger.DailySeriesFor(r.Context(), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, buckets)
}
