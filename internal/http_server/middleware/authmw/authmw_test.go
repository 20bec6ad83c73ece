package authmw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Chu-rill/Huddle/internal/http_server/middleware/authmw"
	"github.com/Chu-rill/Huddle/internal/lib/jwt"
	"github.com/Chu-rill/Huddle/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func protected(t *testing.T) http.Handler {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authmw.Claims(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(7), claims.UserID)
		w.WriteHeader(http.StatusOK)
	})

	return authmw.New(secret)(next)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewToken(models.User{ID: 7, Username: "alice"}, secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	rec := httptest.NewRecorder()

	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_BadScheme(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()

	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewToken(models.User{ID: 7, Username: "alice"}, secret, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
