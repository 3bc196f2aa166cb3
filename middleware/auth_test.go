package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"remindly/model"
	"remindly/services"
	"remindly/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *services.TokenService) {
	gin.SetMode(gin.TestMode)
	client, _ := testutils.SetupTestRedis(t)
	tokens := services.NewTokenService("test-secret", "remindly", time.Hour, services.NewTokenBlacklist(client))

	router := gin.New()
	router.Use(RequestTracingMiddleware())
	authed := router.Group("/", AuthMiddleware(tokens))
	authed.GET("/me", func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID, "admin": caller.Admin})
	})
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, tokens
}

func doRequest(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	userToken, _, err := tokens.Issue(&model.User{UserID: "u-1", Email: "ann@example.com"}, false)
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue(&model.User{UserID: "u-2", Email: "root@example.com"}, true)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		w := doRequest(router, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("bad token", func(t *testing.T) {
		w := doRequest(router, "/me", "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid token")
	})

	t.Run("valid token", func(t *testing.T) {
		w := doRequest(router, "/me", userToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"u-1","admin":false}`, w.Body.String())
	})

	t.Run("admin route rejects users", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, doRequest(router, "/admin", userToken).Code)
		assert.Equal(t, http.StatusNoContent, doRequest(router, "/admin", adminToken).Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, tokens.Revoke(context.Background(), userToken))
		w := doRequest(router, "/me", userToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalidated")
	})
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := doRequest(router, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}
