package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chartstack/chartd/internal/common"
)

// defaultTimeframe is used when a chart query omits the timeframe param.
const defaultTimeframe = string(common.Timeframe1Y)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = defaultTimeframe
	}

	records, freshness, err := s.query.GetHistoricalData(r.Context(), symbol, timeframe)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSONWithFreshness(w, http.StatusOK, records, string(freshness))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	record, err := s.query.GetLatestPrice(r.Context(), r.PathValue("symbol"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if _, err := common.NormalizeSymbol(symbol); err != nil {
		WriteError(w, err)
		return
	}

	// Unknown symbols and degraded lookups answer with a null range
	// rather than an error.
	WriteJSON(w, http.StatusOK, s.query.GetDateRange(r.Context(), symbol))
}

func (s *Server) handleFundamentals(w http.ResponseWriter, r *http.Request) {
	records, err := s.query.GetFundamentals(r.Context(), r.PathValue("symbol"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleRatio(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = defaultTimeframe
	}

	points, err := s.query.GetPriceRatio(r.Context(), r.PathValue("symbol1"), r.PathValue("symbol2"), timeframe)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, points)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	symbol, err := common.NormalizeSymbol(r.PathValue("symbol"))
	if err != nil {
		WriteError(w, err)
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		WriteError(w, err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		WriteError(w, err)
		return
	}

	result := s.sync.SyncStock(r.Context(), symbol, from, to)
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol, err := common.NormalizeSymbol(r.PathValue("symbol"))
	if err != nil {
		WriteError(w, err)
		return
	}

	result := s.sync.SyncFundamentals(r.Context(), symbol)
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version":   common.Version,
		"buildTime": common.BuildTime,
	})
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. A missing
// parameter returns the zero time.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s date %q", common.ErrInvalidInput, name, raw)
	}
	return t, nil
}
