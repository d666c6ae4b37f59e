package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin context keys set for authenticated requests.
const (
	ContextKeyUserID = "userID"
	ContextKeyRole   = "role"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if sess, ok := SessionFromContext(r.Context()); ok {
				c.Set(ContextKeyUserID, sess.UserID)
				c.Set(ContextKeyRole, sess.Role)
			}
			c.Next()
		})

		auth.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// auth middleware already answered
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}
