package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microposts/domain"
	"microposts/errs"
)

func rememberToken(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == rememberCookie {
			return c.Value
		}
	}
	return ""
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	rec := app.do("POST", "/register", credentials{Name: "Alice", Email: "alice@example.com", Password: "password123"}, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := rememberToken(t, rec.Result())
	require.NotEmpty(t, token)

	var user domain.User
	decodeBody(t, rec, &user)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Empty(t, user.Password)

	// The cookie signs the user in.
	rec = app.do("GET", "/profile", nil, &domain.User{Remember: token}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do("POST", "/register", credentials{Name: "Alice", Email: "alice@example.com", Password: "password123"}, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterInvalidBody(t *testing.T) {
	app := newTestApp(t)

	rec := app.do("POST", "/register", "not an object", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errs.ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "Invalid json body.", body.Error)
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice")

	rec := app.do("POST", "/login", credentials{Email: alice.Email, Password: "wrong-password"}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do("POST", "/login", credentials{Email: alice.Email, Password: "password123"}, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := rememberToken(t, rec.Result())
	require.NotEmpty(t, token)
	assert.NotEqual(t, alice.Remember, token, "login rotates the remember token")

	session := &domain.User{Remember: token}
	rec = app.do("POST", "/logout", nil, session, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The old token no longer signs anybody in.
	rec = app.do("GET", "/profile", nil, session, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCSRFProtection(t *testing.T) {
	app := newTestApp(t)
	app.server = NewServer(app.services, Config{CSRFKey: "0123456789abcdef0123456789abcdef"})
	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")

	rec := app.do("POST", "/users/"+itoa(bob.ID)+"/follow", nil, alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do("GET", "/health", nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
}
