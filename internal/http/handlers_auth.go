package http

import (
	"net/http"
	"strings"

	"pravacash/internal/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  services.UserView `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, token, err := s.users.Register(r.Context(), req.Email, strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  services.NewUserView(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  services.NewUserView(user),
	})
}

// handleVerify confirms the presented token still maps to an account
// and returns the fresh user record.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.Get(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": services.NewUserView(user),
	})
}
