package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"microposts/auth"
	"microposts/domain"
	"microposts/errs"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Get the profile data of a specific user.
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGetProfile).Methods("GET")

	// List the users a user follows, the users following them and the microposts they favorite.
	r.HandleFunc("/users/{id:[0-9]+}/followings", s.requireAuth(s.handleListFollowings)).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/followers", s.requireAuth(s.handleListFollowers)).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/favorites", s.requireAuth(s.handleListFavorites)).Methods("GET")
}

// handleGetProfile handles the route "GET /users/{id}".
// It returns the requested user with their relationship counts. For a logged in
// viewer it also tells whether the viewer follows that user.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.ByID(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Check if the authed user is following that user.
	if viewer := auth.GetUser(r.Context()); viewer != nil && viewer.ID != user.ID {
		following, err := s.rs.Exists(r.Context(), domain.KindFollow, viewer.ID, user.ID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		user.IsFollowing = following
	}

	if err := s.loadRelationshipCounts(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, user)
}

// handleListFollowings handles the route "GET /users/{id}/followings".
func (s *Server) handleListFollowings(w http.ResponseWriter, r *http.Request) {
	s.listUsers(w, r, domain.SideActor)
}

// handleListFollowers handles the route "GET /users/{id}/followers".
func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	s.listUsers(w, r, domain.SideTarget)
}

// listUsers returns the users at the other end of the follow edges
// that have the route's user on the given side, newest edge first.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, side domain.Side) {
	user, filter, ok := s.edgeFilter(w, r)
	if !ok {
		return
	}
	if side == domain.SideActor {
		filter.ActorID = &user.ID
	} else {
		filter.TargetID = &user.ID
	}

	edges, err := s.rs.ListEdges(r.Context(), domain.KindFollow, filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	ids := make([]int, 0, len(edges))
	for _, e := range edges {
		if side == domain.SideActor {
			ids = append(ids, e.TargetID)
		} else {
			ids = append(ids, e.ActorID)
		}
	}
	users, err := s.us.ByIDs(r.Context(), ids)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, users)
}

// handleListFavorites handles the route "GET /users/{id}/favorites".
// It returns the microposts the user favorites, most recently favorited first.
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	user, filter, ok := s.edgeFilter(w, r)
	if !ok {
		return
	}
	filter.ActorID = &user.ID

	edges, err := s.rs.ListEdges(r.Context(), domain.KindFavorite, filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	ids := make([]int, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.TargetID)
	}
	posts, err := s.ms.ByIDs(r.Context(), ids)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.flagFavorited(r.Context(), auth.GetUser(r.Context()), posts); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, posts)
}

// edgeFilter loads the route's user and builds a filter from the page
// query parameters. On failure it writes the error and returns false.
func (s *Server) edgeFilter(w http.ResponseWriter, r *http.Request) (*domain.User, domain.EdgeFilter, bool) {
	var filter domain.EdgeFilter
	userID, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return nil, filter, false
	}
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return nil, filter, false
	}
	user, err := s.us.ByID(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return nil, filter, false
	}
	filter.Offset, filter.Limit = page.Offset, page.Limit
	return user, filter, true
}

// loadRelationshipCounts sets the number of microposts, followings,
// followers and favorites of the user.
func (s *Server) loadRelationshipCounts(ctx context.Context, user *domain.User) error {
	var (
		counts domain.RelationshipCounts
		err    error
	)
	if counts.Microposts, err = s.ms.CountByUser(ctx, user.ID); err != nil {
		return err
	}
	if counts.Followings, err = s.rs.Count(ctx, domain.KindFollow, domain.SideActor, user.ID); err != nil {
		return err
	}
	if counts.Followers, err = s.rs.Count(ctx, domain.KindFollow, domain.SideTarget, user.ID); err != nil {
		return err
	}
	if counts.Favorites, err = s.rs.Count(ctx, domain.KindFavorite, domain.SideActor, user.ID); err != nil {
		return err
	}
	user.Counts = &counts
	return nil
}
