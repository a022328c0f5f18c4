package server

import "net/http"

// routes builds the API mux. Method and path wildcards are matched by
// the standard mux; unmatched methods get 405 for free.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stocks/{symbol}/history", s.handleHistory)
	mux.HandleFunc("GET /api/stocks/{symbol}/latest", s.handleLatest)
	mux.HandleFunc("GET /api/stocks/{symbol}/range", s.handleRange)
	mux.HandleFunc("GET /api/stocks/{symbol}/fundamentals", s.handleFundamentals)
	mux.HandleFunc("GET /api/ratio/{symbol1}/{symbol2}", s.handleRatio)

	mux.HandleFunc("POST /api/stocks/{symbol}/sync", s.handleSync)
	mux.HandleFunc("POST /api/stocks/{symbol}/sync-fundamentals", s.handleSyncFundamentals)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)

	var handler http.Handler = mux
	handler = withRequestLogging(s.logger, handler)
	handler = withCorrelationID(handler)
	handler = withCORS(handler)
	handler = withRecovery(s.logger, handler)
	return handler
}
