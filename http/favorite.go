package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"microposts/domain"
)

// registerFavoriteRoutes is a helper for registering all favorite routes.
func (s *Server) registerFavoriteRoutes(r *mux.Router) {
	// Favorite a micropost.
	r.HandleFunc("/microposts/{id:[0-9]+}/favorite", s.requireAuth(s.handleCreateFavorite)).Methods("POST")

	// Unfavorite a micropost.
	r.HandleFunc("/microposts/{id:[0-9]+}/favorite", s.requireAuth(s.handleDeleteFavorite)).Methods("DELETE")
}

func (s *Server) handleCreateFavorite(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, domain.KindFavorite, true)
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, domain.KindFavorite, false)
}
