package http

import (
	"net/http"
)

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	summary, err := s.reports.Summary(r.Context(), claims.UserID, queryDate(r, "referenceDate"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReportLedger(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	params, page, pageSize := parseLedgerQuery(r)
	ledger, err := s.reports.Ledger(r.Context(), claims.UserID, params, page, pageSize)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleReportSeries(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	series, err := s.reports.Series(r.Context(), claims.UserID, r.URL.Query().Get("granularity"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleReportHeatmap(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	heatmap, err := s.reports.HeatmapData(r.Context(), claims.UserID, queryDate(r, "referenceDate"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"days": heatmap})
}
