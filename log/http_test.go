package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: "info", ServiceName: "test"})

	var seenID string
	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		l := Ctx(r.Context())
		l.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates a request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

		id := rec.Header().Get(HeaderRequestID)
		require.NotEmpty(t, id)
		assert.Equal(t, id, seenID)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("keeps an incoming request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		var completed map[string]interface{}
		require.NoError(t, json.Unmarshal(lines[1], &completed))
		assert.Equal(t, "abc-123", completed[FieldRequestID])
		assert.Equal(t, "/feed", completed[FieldPath])
		assert.Equal(t, float64(http.StatusTeapot), completed[FieldStatus])
		assert.Equal(t, "test", completed[FieldService])
	})
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, L(), Ctx(req.Context()))
	assert.Empty(t, RequestID(req.Context()))
}
