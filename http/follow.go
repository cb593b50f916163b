package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"microposts/domain"
)

// registerFollowRoutes is a helper for registering all follow routes.
func (s *Server) registerFollowRoutes(r *mux.Router) {
	// Follow a user.
	r.HandleFunc("/users/{id:[0-9]+}/follow", s.requireAuth(s.handleCreateFollow)).Methods("POST")

	// Unfollow a user.
	r.HandleFunc("/users/{id:[0-9]+}/follow", s.requireAuth(s.handleDeleteFollow)).Methods("DELETE")
}

// handleCreateFollow handles the route "POST /users/{id}/follow".
func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, domain.KindFollow, true)
}

// handleDeleteFollow handles the route "DELETE /users/{id}/follow".
func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, domain.KindFollow, false)
}
