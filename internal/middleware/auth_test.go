package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tenac92/LEXIS-sub001/internal/session"
)

func newRouter(t *testing.T) (*gin.Engine, *session.Authenticator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := session.NewAuthenticator(session.NewMemoryStore(), time.Hour, 24*time.Hour)
	r := gin.New()
	r.GET("/api/me", GinRequireAuth(NewAuthMiddleware(auth)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextKeyUserID)})
	})
	return r, auth
}

func TestGinRequireAuth_RejectsWithoutCookie(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGinRequireAuth_PassesSessionUser(t *testing.T) {
	r, auth := newRouter(t)

	sess, err := auth.Issue(context.Background(), "user-42", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-42"}`, w.Body.String())
}

func TestGinRequireAuth_RejectsRevokedSession(t *testing.T) {
	r, auth := newRouter(t)
	ctx := context.Background()

	sess, err := auth.Issue(ctx, "user-42", "user")
	require.NoError(t, err)
	require.NoError(t, auth.Revoke(ctx, sess.SessionID))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
