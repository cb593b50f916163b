package http

import (
	"net/http"
	"net/url"
	"strings"

	"microposts/auth"
	"microposts/domain"
	"microposts/errs"
)

// toggle adds or removes the authenticated user's edge of the given kind to
// the target named by the route's id, then sends the client back to where it
// came from. Whether the call changed anything does not affect the response.
func (s *Server) toggle(w http.ResponseWriter, r *http.Request, kind domain.Kind, add bool) {
	targetID, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	actor := auth.GetUser(r.Context())

	if add {
		_, err = s.rs.Add(r.Context(), kind, actor.ID, targetID)
	} else {
		_, err = s.rs.Remove(r.Context(), kind, actor.ID, targetID)
	}
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	redirectBack(w, r)
}

// redirectBack answers with a 302 to the referring page, or to "/".
func redirectBack(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, backURL(r), http.StatusFound)
}

// backURL returns the Referer when it points into this site, else "/".
func backURL(r *http.Request) string {
	ref := r.Referer()
	if ref == "" || strings.Contains(ref, `\`) {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "/"
	}
	switch {
	case u.Scheme == "" && u.Host == "":
		if !strings.HasPrefix(u.Path, "/") {
			return "/"
		}
	case (u.Scheme == "http" || u.Scheme == "https") && u.Host == r.Host:
	default:
		return "/"
	}
	back := u.EscapedPath()
	if back == "" {
		back = "/"
	}
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return back
}
