package http

import (
	"fmt"
	"net/http"
	"time"

	applog "pravacash/internal/log"
	"pravacash/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	transactions, err := s.txs.List(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": services.TransactionViews(transactions),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction(claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.txs.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, services.NewTransactionView(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id := r.PathValue("id")

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction(claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tx.ID = id

	if err := s.txs.Update(r.Context(), tx); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	if err := s.txs.Delete(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

type pinGateRequest struct {
	PIN string `json:"pin,omitempty"`
}

// handleDeleteAllTransactions wipes the caller's ledger. When a PIN is
// configured it must accompany the request.
func (s *Server) handleDeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req pinGateRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.users.VerifyPIN(r.Context(), claims.UserID, req.PIN); err != nil {
		writeDomainError(w, r, err)
		return
	}

	count, err := s.txs.DeleteAll(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

// handleImport accepts a multipart upload under the "file" field and
// merges its rows into the caller's ledger.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	if err := s.users.VerifyPIN(r.Context(), claims.UserID, r.FormValue("pin")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	count, err := s.txs.Import(r.Context(), claims.UserID, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read workbook")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": count})
}

// handleExport streams the ledger as an xlsx workbook. The PIN, when
// set, arrives as a query parameter since downloads have no body.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	if err := s.users.VerifyPIN(r.Context(), claims.UserID, r.URL.Query().Get("pin")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.txs.Export(r.Context(), claims.UserID, w); err != nil {
		// Headers are already out; the truncated download is all we
		// can signal.
		s.logger.ErrorContext(r.Context(), "export failed", applog.FieldError, err.Error())
	}
}
