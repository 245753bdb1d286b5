package http

import (
	"fmt"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/stats"
)

// Trends without explicit bounds cover the last twelve calendar months.
const defaultTrendMonths = 12

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindowOrMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.svc.Stats.Summary(r.Context(), window)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toSummary(summary)).Write(w)
}

func (s *Server) handleStatsCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := ParseWindowOrMonth(q, s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	kind := stats.KindExpense
	switch v := strings.TrimSpace(q.Get("kind")); v {
	case "":
	case "all":
		kind = stats.KindAll
	case string(stats.KindExpense), string(stats.KindIncome):
		kind = stats.ParseKind(v)
	default:
		writeError(w, r, log.OpRead, fmt.Errorf("%w: invalid kind %q", core.ErrValidation, v))
		return
	}
	breakdown, err := s.svc.Stats.ByCategory(r.Context(), window, kind)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toCategoryStats(breakdown)).Write(w)
}

func (s *Server) handleStatsTrend(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	window, err := ParseWindow(r.URL.Query(), now.Location())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if window.Start.IsZero() && window.End.IsZero() {
		current := core.MonthWindow(now)
		window = core.Window{Start: current.Start.AddDate(0, 1-defaultTrendMonths, 0), End: current.End}
	}
	trend, err := s.svc.Stats.Trend(r.Context(), window)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toTrend(trend)).Write(w)
}

func (s *Server) handleStatsAverage(w http.ResponseWriter, r *http.Request) {
	avg, err := s.svc.Stats.Average(r.Context(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toAverage(avg)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	params, err := ParseMonthParams(r.URL.Query(), now)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.svc.Stats.Dashboard(r.Context(), params.Year, params.Month, now)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toDashboard(d)).Write(w)
}
