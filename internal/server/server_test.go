package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/social-media/backend/internal/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDB map[string]string

func (f fakeDB) Health() map[string]string { return f }

func newTestServer(db HealthChecker) *http.Server {
	return NewServer(handlers.NewHandler(handlers.Services{}), Options{
		Addr:         "127.0.0.1:0",
		AllowOrigins: []string{"http://localhost:5173"},
		DB:           db,
	})
}

func TestHealth(t *testing.T) {
	srv := newTestServer(fakeDB{"status": "up", "open_connections": "1"})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"up","open_connections":"1"}`, rec.Body.String())

	srv = newTestServer(fakeDB{"status": "down", "error": "db down"})
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireUser(t *testing.T) {
	srv := newTestServer(nil)

	for _, path := range []string{"/api/posts", "/api/posts/1/vote", "/api/posts/1/comments", "/api/communities"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
