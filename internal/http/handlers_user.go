package http

import (
	"net/http"
	"strings"

	"pravacash/internal/services"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.Get(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, services.NewUserView(user))
}

type settingsRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := s.users.UpdateSettings(r.Context(), claims.UserID, strings.TrimSpace(req.Name), req.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, services.NewUserView(user))
}

type setPINRequest struct {
	PIN        string `json:"pin"`
	CurrentPIN string `json:"currentPin,omitempty"`
}

// handleSetPIN sets, changes, or clears the PIN. Changing or clearing
// an existing PIN requires the current one.
func (s *Server) handleSetPIN(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req setPINRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.VerifyPIN(r.Context(), claims.UserID, req.CurrentPIN); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.users.SetPIN(r.Context(), claims.UserID, req.PIN); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pinEnabled": req.PIN != ""})
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req pinGateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.VerifyPIN(r.Context(), claims.UserID, req.PIN); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}
