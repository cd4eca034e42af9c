package http_test

import (
	"encoding/json"
	"testing"

	"net/http/httptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/hello2himel/urochithi/pkg/http"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "Invalid request format")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid request format", resp.Error)
}

func TestWriteUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteUnauthorized(w, "Invalid PIN")

	assert.Equal(t, 401, w.Code)
	assert.JSONEq(t, `{"error":"Invalid PIN"}`, w.Body.String())
}

func TestWriteRateLimited(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteRateLimited(w, 1800, "Too many attempts. Try again later.")

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "1800", w.Header().Get("Retry-After"))
	assert.JSONEq(t,
		`{"error":"Too many attempts. Try again later.","retryAfter":1800}`,
		w.Body.String())
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteJSON(w, 200, map[string]bool{"valid": true})

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())
}
