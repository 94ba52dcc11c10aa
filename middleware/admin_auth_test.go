package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gestorreportes/kvstore"
	"gestorreportes/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestRequireSession(t *testing.T) {
	sessions := service.NewSessionService(kvstore.NewMemoryStore(), "secret")
	h := RequireSession(sessions)(ok)

	rec := serve(h)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login required")

	require.True(t, sessions.LoginAsUser(context.Background(), "Luis").Success)
	assert.Equal(t, http.StatusNoContent, serve(h).Code)

	sessions.Logout(context.Background())
	require.True(t, sessions.Login(context.Background(), "secret", "Ana").Success)
	assert.Equal(t, http.StatusNoContent, serve(h).Code)
}

func TestRequireAdminSession(t *testing.T) {
	sessions := service.NewSessionService(kvstore.NewMemoryStore(), "secret")
	h := RequireAdminSession(sessions)(ok)

	assert.Equal(t, http.StatusForbidden, serve(h).Code)

	require.True(t, sessions.LoginAsUser(context.Background(), "Luis").Success)
	rec := serve(h)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	sessions.Logout(context.Background())
	require.True(t, sessions.Login(context.Background(), "secret", "Ana").Success)
	assert.Equal(t, http.StatusNoContent, serve(h).Code)
}
