package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/market"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	if s.svc.Market == nil {
		unavailable(w, "market data")
		return
	}
	limit, err := ParseLimit(r.URL.Query(), market.DefaultLimit, market.MaxLimit)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	assets, err := s.svc.Market.ListAssets(r.Context(), limit)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(assets).Write(w)
}

// handleAssetHistory serves prices for the asset named in the path over the
// last "days" days.
func (s *Server) handleAssetHistory(w http.ResponseWriter, r *http.Request) {
	if s.svc.Market == nil {
		unavailable(w, "market data")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	q := r.URL.Query()
	days := defaultHistoryDays
	if v := strings.TrimSpace(q.Get("days")); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 || days > maxHistoryDays {
			writeError(w, r, log.OpRead, fmt.Errorf("%w: days must be 1-%d", core.ErrValidation, maxHistoryDays))
			return
		}
	}
	interval := strings.TrimSpace(q.Get("interval"))
	if interval == "" {
		interval = "daily"
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)
	points, err := s.svc.Market.History(r.Context(), id, start, end, interval)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(historyResponse{
		AssetID:  id,
		Interval: interval,
		Start:    start,
		End:      end,
		Points:   points,
	}).Write(w)
}
