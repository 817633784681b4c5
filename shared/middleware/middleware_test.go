package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	claims *models.Claims
	err    error
}

func (s stubVerifier) VerifyToken(context.Context, string) (*models.Claims, error) {
	return s.claims, s.err
}

type stubAPIKeys string

func (k stubAPIKeys) VerifyAPIKey(key string) bool { return key == string(k) }

func newRouter(verifier TokenVerifier, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{ResolvePrincipal(verifier, stubAPIKeys("secret"), zap.NewNop())}, mw...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, GetPrincipal(c))
	})
	r.GET("/whoami", handlers...)
	return r
}

func TestResolvePrincipal(t *testing.T) {
	userID := uuid.New()
	verifier := stubVerifier{claims: &models.Claims{UserID: userID, Roles: []string{models.RoleAuthor}}}

	t.Run("anonymous session key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(SessionKeyHeader, "  tok-1 ")
		newRouter(verifier).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var p models.Principal
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, "tok-1", p.Identity.SessionKey)
		assert.Nil(t, p.Identity.UserID)
	})

	t.Run("bearer token and api key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer abc")
		req.Header.Set(APIKeyHeader, "secret")
		newRouter(verifier).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var p models.Principal
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		require.NotNil(t, p.Identity.UserID)
		assert.Equal(t, userID, *p.Identity.UserID)
		assert.True(t, p.ServiceKey)
		assert.Equal(t, []string{models.RoleAuthor}, p.Roles)
	})

	t.Run("expired token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer abc")
		newRouter(stubVerifier{err: models.ErrTokenExpired}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token expired")
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token")
		newRouter(verifier).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong api key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(APIKeyHeader, "nope")
		newRouter(verifier).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAuthenticated(t *testing.T) {
	r := newRouter(stubVerifier{claims: &models.Claims{UserID: uuid.New()}}, RequireAuthenticated())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlayRateLimiter_InMemory(t *testing.T) {
	r := newRouter(nil, PlayRateLimiter(nil, 2, time.Minute, zap.NewNop()))

	do := func(sessionKey, remoteAddr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(SessionKeyHeader, sessionKey)
		req.RemoteAddr = remoteAddr
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("tok-1", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, do("tok-2", "10.0.0.1:1234").Code)

	// новый X-Session-Key не сбрасывает счётчик
	w := do("tok-3", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.CodeRateLimited, body.Code)

	assert.Equal(t, http.StatusOK, do("tok-1", "10.0.0.2:1234").Code)
}

func TestPlayRateLimiter_UserKeyedAcrossAddresses(t *testing.T) {
	r := newRouter(stubVerifier{claims: &models.Claims{UserID: uuid.New()}}, PlayRateLimiter(nil, 1, time.Minute, zap.NewNop()))

	do := func(remoteAddr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer abc")
		req.RemoteAddr = remoteAddr
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.2:1234"))
}
