package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"microposts/crud"
	"microposts/domain"
	"microposts/errs"
	pkglog "microposts/log"
)

// Config holds the settings of the http server.
type Config struct {
	// Port is the port Run listens on.
	Port int
	// IsProd marks cookies as secure.
	IsProd bool
	// CSRFKey enables CSRF protection when set. It must be 32 bytes long.
	CSRFKey string
}

// Server provides the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication and
// authorization before handing things over to one of the crud services.
type Server struct {
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	port    int
	isProd  bool

	us domain.UserService
	ms domain.MicropostService
	rs domain.RelationService
	db pinger
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the crud services passed in.
func NewServer(services *crud.Services, cfg Config) *Server {
	s := &Server{
		router: mux.NewRouter(),
		port:   cfg.Port,
		isProd: cfg.IsProd,
		us:     services.User,
		ms:     services.Micropost,
		rs:     services.Relation,
		db:     services,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Register routes of the auth system.
	s.registerAuthRoutes(s.router)

	// Register routes of the crud system.
	s.registerUserRoutes(s.router)
	s.registerMicropostRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerFavoriteRoutes(s.router)

	// Set up middleware that needs to run on every request.
	s.router.Use(pkglog.HTTPMiddleware(pkglog.L()))
	if cfg.CSRFKey != "" {
		csrfMw := csrf.Protect([]byte(cfg.CSRFKey), csrf.Secure(cfg.IsProd), csrf.Path("/"))
		s.router.Use(csrfMw, exposeCSRFToken)
	}
	s.router.Use(setContentTypeJSON, s.checkUser)

	s.handler = s.router
	return s
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// exposeCSRFToken hands the current CSRF token to clients in a response header.
func exposeCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// handleHealth handles the route "GET /health".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		errs.LogError(r, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// Run starts to listen and serve on the configured port. It returns nil after Shutdown.
func (s *Server) Run() error {
	s.server = &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// decodeJSON parses the request's json body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Errorf(errs.EINVALID, "Invalid json body.")
	}
	return nil
}

// writeJSON encodes v into the response, logging encoding failures.
func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}

// pathID parses the numeric route parameter "id".
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, errs.IdInvalid
	}
	return id, nil
}

// parsePage reads the "offset" and "limit" query parameters.
// Missing values are left at zero; the crud services apply the defaults.
func parsePage(r *http.Request) (domain.Page, error) {
	var page domain.Page
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, errs.Errorf(errs.EINVALID, "Invalid offset.")
		}
		page.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, errs.Errorf(errs.EINVALID, "Invalid limit.")
		}
		page.Limit = n
	}
	return page, nil
}
