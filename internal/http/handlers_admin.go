package http

import (
	"net/http"
	"strings"

	"pravacash/internal/core"
	"pravacash/internal/services"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.admin.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, services.NewStatsView(stats))
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": services.NewAdminUserViews(users),
	})
}

type adminCreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	role := core.Role(req.Role)
	if req.Role == "" {
		role = core.RoleUser
	}
	if !role.Valid() {
		writeDomainError(w, r, core.ErrInvalidRole)
		return
	}

	user, err := s.admin.CreateUser(r.Context(), req.Email, strings.TrimSpace(req.Name), req.Password, role)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, services.NewUserView(user))
}

type adminUpdateUserRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req adminUpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.admin.UpdateUserRole(r.Context(), claims.UserID, r.PathValue("id"), core.Role(req.Role)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	if err := s.admin.DeleteUser(r.Context(), claims.UserID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleAdminListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.admin.ListAllTransactions(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": services.NewAdminTransactionViews(transactions),
	})
}
