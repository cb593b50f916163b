package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"microposts/auth"
	"microposts/domain"
	"microposts/errs"
)

// registerMicropostRoutes is a helper for registering all Micropost routes.
func (s *Server) registerMicropostRoutes(r *mux.Router) {
	// Create a new micropost.
	r.HandleFunc("/microposts", s.requireAuth(s.handleCreateMicropost)).Methods("POST")

	// Delete one of the authed user's microposts.
	r.HandleFunc("/microposts/{id:[0-9]+}", s.requireAuth(s.handleDeleteMicropost)).Methods("DELETE")

	// Get the microposts of the authed user and of everyone they follow.
	r.HandleFunc("/feed", s.requireAuth(s.handleFeed)).Methods("GET")
}

// handleCreateMicropost handles the route "POST /microposts".
// It reads the content from the json body and stores a new micropost of the authed user.
func (s *Server) handleCreateMicropost(w http.ResponseWriter, r *http.Request) {
	var post domain.Micropost
	if err := decodeJSON(r, &post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// The author is always the authed user, whatever the body says.
	user := auth.GetUser(r.Context())
	post = domain.Micropost{UserID: user.ID, Content: post.Content}

	if err := s.ms.Create(r.Context(), &post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, post)
}

// handleDeleteMicropost handles the route "DELETE /microposts/{id}".
// Only the author may delete a micropost. Its favorites go with it.
func (s *Server) handleDeleteMicropost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	post, err := s.ms.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Check if the micropost belongs to the authed user.
	user := auth.GetUser(r.Context())
	if post.UserID != user.ID {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You are not allowed to delete this micropost."))
		return
	}

	if err := s.ms.Delete(r.Context(), post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFeed handles the route "GET /feed".
// Every micropost is flagged with whether the authed user favorites it.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	posts, err := s.ms.Feed(r.Context(), user.ID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.flagFavorited(r.Context(), user, posts); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, posts)
}

// flagFavorited sets the Favorited field of each post for the viewer.
func (s *Server) flagFavorited(ctx context.Context, viewer *domain.User, posts []domain.Micropost) error {
	if viewer == nil || len(posts) == 0 {
		return nil
	}
	ids := make([]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	favorited, err := s.rs.ExistsMany(ctx, domain.KindFavorite, viewer.ID, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Favorited = favorited[posts[i].ID]
	}
	return nil
}
