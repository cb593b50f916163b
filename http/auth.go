package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"microposts/auth"
	"microposts/domain"
	"microposts/errs"
	pkglog "microposts/log"
)

// rememberCookie is the name of the cookie carrying the remember token.
const rememberCookie = "remember_token"

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.requireAuth(s.handleLogout)).Methods("POST")
	r.HandleFunc("/profile", s.requireAuth(s.handleProfile)).Methods("GET")
}

// credentials is the json body of register and login requests.
type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister handles the route "POST /register".
// It creates a new user and signs them in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := domain.User{Name: c.Name, Email: c.Email, Password: c.Password}
	if err := s.us.Create(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.signIn(w, r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, &user)
}

// handleLogin handles the route "POST /login".
// It checks the submitted credentials and sets the remember token cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.Authenticate(r.Context(), c.Email, c.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.signIn(w, r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, user)
}

// handleLogout handles the route "POST /logout".
// It expires the cookie and rotates the remember token, so the old one stops working.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})

	user := auth.GetUser(r.Context())
	token, err := s.us.MakeRememberToken()
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user.Remember = token
	if err := s.us.Update(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, map[string]string{"message": "successfully logged out"})
}

// handleProfile handles the route "GET /profile".
// It returns the authenticated user together with their relationship counts.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if err := s.loadRelationshipCounts(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, user)
}

// signIn rotates the user's remember token and sets it as a cookie.
func (s *Server) signIn(w http.ResponseWriter, ctx context.Context, user *domain.User) error {
	if user.Remember == "" {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			return err
		}
		user.Remember = token
		if err := s.us.Update(ctx, user); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    user.Remember,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProd,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// checkUser looks up the user of the remember token cookie, if any,
// and puts them into the request context.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(rememberCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByRemember(r.Context(), cookie.Value)
		if err != nil {
			if errs.ErrorCode(err) == errs.EINTERNAL {
				errs.LogError(r, err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.SetUser(r.Context(), user)
		l := pkglog.Ctx(ctx).With().Int(pkglog.FieldActorID, user.ID).Logger()
		ctx = pkglog.WithLogger(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth redirects anonymous requests to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}
