package http

import (
	"net/http"
)

// handleWS upgrades the connection and hands it to the push hub. Auth
// happened in requireAuth; the hub only needs the identity.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	s.hub.ServeWS(w, r, claims.UserID, claims.Role)
}
