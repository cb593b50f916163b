package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"nil", nil, "", ""},
		{"app error", Errorf(ENOTFOUND, "The user %d does not exist.", 7), ENOTFOUND, "The user 7 does not exist."},
		{"wrapped app error", fmt.Errorf("lookup: %w", IdInvalid), EINVALID, "Invalid Id format."},
		{"plain error", errors.New("connection refused"), EINTERNAL, "Internal error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.message, ErrorMessage(tt.err))
		})
	}
}

func TestReturnError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{Errorf(EINVALID, "Bad."), http.StatusBadRequest, "Bad."},
		{Errorf(ENOTFOUND, "Gone."), http.StatusNotFound, "Gone."},
		{Errorf(EUNAUTHORIZED, "No."), http.StatusUnauthorized, "No."},
		{Errorf(ECONFLICT, "Twice."), http.StatusConflict, "Twice."},
		{errors.New("db down"), http.StatusInternalServerError, "Internal error."},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		ReturnError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, tt.body, resp.Error)
	}
}
