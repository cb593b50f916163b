package errs

import (
	"encoding/json"
	"net/http"

	pkglog "microposts/log"
)

// codes maps application error codes to HTTP status codes.
var codes = map[string]int{
	ECONFLICT:     http.StatusConflict,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EINTERNAL:     http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes the error as a json response with the matching status code.
// Internal errors are logged, and only a generic message is sent to the client.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	json.NewEncoder(w).Encode(&ErrorResponse{Error: message})
}

// ErrorResponse is the json body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogError logs an error together with the request it occurred in.
func LogError(r *http.Request, err error) {
	l := pkglog.Ctx(r.Context())
	l.Error().Err(err).
		Str(pkglog.FieldMethod, r.Method).
		Str(pkglog.FieldPath, r.URL.Path).
		Msg("request error")
}
